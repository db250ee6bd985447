// Package openapi assembles the OpenAPI 3.1 description of the keysmith
// HTTP surface, served at /openapi.json.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// GenerateSpec builds the OpenAPI document for the service.
func GenerateSpec(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Keysmith API",
			Description: "API key issuance, validation, and admin management.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"adminSession": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components

	doc.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    schemaOf("integer"),
							"message": schemaOf("string"),
						},
					},
				},
			},
		},
	}
	doc.Components.Schemas["APIKey"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":           schemaOf("integer"),
				"api_key":      schemaOf("string"),
				"user_id":      schemaOf("integer"),
				"is_active":    schemaOf("boolean"),
				"status":       schemaOf("string"),
				"created_at":   schemaOf("string"),
				"last_used_at": schemaOf("string"),
				"expires_at":   schemaOf("string"),
			},
		},
	}

	doc.Paths = openapi3.NewPaths()

	doc.Paths.Set("/register", &openapi3.PathItem{
		Post: operation("register", "Register a user and generate an API key",
			withJSONBody("first_name", "last_name", "email_address"),
			withResponses(map[int]string{
				200: "User created; the generated key is returned once",
				400: "Missing fields or duplicate email",
				500: "Store failure",
			})),
	})
	doc.Paths.Set("/user", &openapi3.PathItem{
		Post: operation("registerWithKey", "Register a client-supplied API key",
			withJSONBody("first_name", "last_name", "email_address", "api_key"),
			withResponses(map[int]string{
				200: "Key bound to the user (existing users are adopted by email)",
				400: "Missing fields, malformed key, or duplicate key",
				500: "Store failure",
			})),
	})
	doc.Paths.Set("/create", &openapi3.PathItem{
		Post: operation("createKey", "Mint a key string without persisting it",
			withResponses(map[int]string{
				200: "Fresh key string",
				500: "Random source failure",
			})),
	})
	doc.Paths.Set("/cekapi", &openapi3.PathItem{
		Post: operation("validateKey", "Validate an API key (body apiKey or Bearer header)",
			withJSONBody("apiKey"),
			withResponses(map[int]string{
				200: "Key is valid and active",
				400: "Missing or malformed key",
				401: "Unknown key",
				403: "Inactive key",
				500: "Store failure",
			})),
	})
	doc.Paths.Set("/admin/register", &openapi3.PathItem{
		Post: operation("adminRegister", "Create an admin account",
			withJSONBody("email", "password"),
			withResponses(map[int]string{
				200: "Account created",
				400: "Duplicate email or weak input",
			})),
	})
	doc.Paths.Set("/admin/login", &openapi3.PathItem{
		Post: operation("adminLogin", "Authenticate and open an admin session",
			withJSONBody("email", "password"),
			withResponses(map[int]string{
				200: "Session token issued",
				401: "Invalid credentials",
			})),
	})
	doc.Paths.Set("/admin/logout", &openapi3.PathItem{
		Post: secured(operation("adminLogout", "Destroy the current session",
			withResponses(map[int]string{200: "Session ended", 401: "Unauthenticated"}))),
	})
	doc.Paths.Set("/admin/dashboard", &openapi3.PathItem{
		Get: secured(operation("adminDashboard", "Summary of keys, users, and derived status",
			withResponses(map[int]string{200: "Dashboard data", 401: "Unauthenticated"}))),
	})
	doc.Paths.Set("/admin/apikeys", &openapi3.PathItem{
		Get: secured(operation("adminListKeys", "List all API keys with derived status",
			withResponses(map[int]string{200: "Key listing", 401: "Unauthenticated", 500: "Store failure"}))),
	})
	doc.Paths.Set("/admin/users", &openapi3.PathItem{
		Get: secured(operation("adminListUsers", "List all users joined with key info",
			withResponses(map[int]string{200: "User listing", 401: "Unauthenticated", 500: "Store failure"}))),
	})
	doc.Paths.Set("/admin/apikey/{id}", &openapi3.PathItem{
		Delete: secured(operation("adminDeleteKey", "Delete an API key record",
			withIDParam(),
			withResponses(map[int]string{200: "Deleted", 400: "Invalid ID", 404: "Not found"}))),
	})
	doc.Paths.Set("/admin/apikey/{id}/deactivate", &openapi3.PathItem{
		Post: secured(operation("adminDeactivateKey", "Deactivate an API key without deleting it",
			withIDParam(),
			withResponses(map[int]string{200: "Deactivated", 400: "Invalid ID", 404: "Not found"}))),
	})
	doc.Paths.Set("/admin/user/{id}", &openapi3.PathItem{
		Delete: secured(operation("adminDeleteUser", "Delete a user and cascade its keys",
			withIDParam(),
			withResponses(map[int]string{200: "Deleted", 404: "Not found"}))),
	})
	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: operation("healthz", "Liveness probe",
			withResponses(map[int]string{200: "Process is running"})),
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: operation("readyz", "Readiness probe",
			withResponses(map[int]string{200: "Store is reachable", 503: "Store is unreachable"})),
	})
	doc.Paths.Set("/openapi.json", &openapi3.PathItem{
		Get: operation("openapiSpec", "This document",
			withResponses(map[int]string{200: "OpenAPI 3.1 specification"})),
	})

	return doc
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

type opOption func(*openapi3.Operation)

func operation(id, summary string, opts ...opOption) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: id,
		Summary:     summary,
	}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

func secured(op *openapi3.Operation) *openapi3.Operation {
	op.Security = &openapi3.SecurityRequirements{{"adminSession": {}}}
	return op
}

func withJSONBody(fields ...string) opOption {
	return func(op *openapi3.Operation) {
		props := openapi3.Schemas{}
		for _, f := range fields {
			props[f] = schemaOf("string")
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content: openapi3.NewContentWithJSONSchema(&openapi3.Schema{
					Type:       &openapi3.Types{"object"},
					Properties: props,
				}),
			},
		}
	}
}

func withIDParam() opOption {
	return func(op *openapi3.Operation) {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     "id",
				In:       "path",
				Required: true,
				Schema:   schemaOf("integer"),
			},
		})
	}
}

func withResponses(codes map[int]string) opOption {
	return func(op *openapi3.Operation) {
		responses := openapi3.NewResponses()
		for code, desc := range codes {
			d := desc
			responses.Set(statusCode(code), &openapi3.ResponseRef{
				Value: &openapi3.Response{Description: &d},
			})
		}
		op.Responses = responses
	}
}

func schemaOf(typ string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{typ}}}
}

func statusCode(code int) string {
	switch code {
	case 200:
		return "200"
	case 400:
		return "400"
	case 401:
		return "401"
	case 403:
		return "403"
	case 404:
		return "404"
	case 500:
		return "500"
	default:
		return "default"
	}
}
