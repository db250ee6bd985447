package model

// ListResponse is the standard envelope for admin list endpoints, wrapping
// results in a "resource" array with a count.
type ListResponse struct {
	Resource []map[string]interface{} `json:"resource"`
	Meta     *ResponseMeta            `json:"meta,omitempty"`
}

// ResponseMeta carries list metadata.
type ResponseMeta struct {
	Count int `json:"count"`
}

// ErrorResponse is the standard envelope for admin error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
