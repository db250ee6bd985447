package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stackmint/keysmith/internal/service"
	"github.com/stackmint/keysmith/internal/store"
)

// registerTools registers all keysmith MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("keysmith_validate_key",
			mcp.WithDescription(
				"Validate an API key. Reports whether the key is valid and active; "+
					"a successful validation records the key's last use.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("api_key",
				mcp.Required(),
				mcp.Description("The raw API key string to validate"),
			),
		),
		s.handleValidateKey,
	)

	srv.AddTool(
		mcp.NewTool("keysmith_list_keys",
			mcp.WithDescription(
				"List all API key records with their active flag, owner, timestamps, "+
					"and derived online/offline status.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListKeys,
	)

	srv.AddTool(
		mcp.NewTool("keysmith_list_users",
			mcp.WithDescription(
				"List all registered users joined with the keys they own.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListUsers,
	)

	srv.AddTool(
		mcp.NewTool("keysmith_revoke_key",
			mcp.WithDescription(
				"Delete an API key record by ID. The key stops validating immediately "+
					"and cannot be recovered.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric ID of the key to delete"),
			),
		),
		s.handleRevokeKey,
	)

	srv.AddTool(
		mcp.NewTool("keysmith_deactivate_key",
			mcp.WithDescription(
				"Deactivate an API key by ID without deleting it. The key starts "+
					"failing validation as inactive rather than unknown.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric ID of the key to deactivate"),
			),
		),
		s.handleDeactivateKey,
	)

	srv.AddTool(
		mcp.NewTool("keysmith_register_user",
			mcp.WithDescription(
				"Register a new user and generate an API key for it. Returns the key "+
					"string; it is shown once and cannot be retrieved again.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("first_name", mcp.Required()),
			mcp.WithString("last_name", mcp.Required()),
			mcp.WithString("email_address", mcp.Required()),
		),
		s.handleRegisterUser,
	)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *MCPServer) handleValidateKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawKey, err := request.RequireString("api_key")
	if err != nil {
		return toolError("missing required parameter %q", "api_key")
	}

	if err := s.keys.Validate(ctx, rawKey); err != nil {
		switch {
		case errors.Is(err, service.ErrMissingKey),
			errors.Is(err, service.ErrMalformedKey),
			errors.Is(err, service.ErrUnknownKey),
			errors.Is(err, service.ErrInactiveKey):
			return successJSON(map[string]interface{}{"valid": false, "reason": err.Error()})
		default:
			return toolError("validation failed: %v", err)
		}
	}
	return successJSON(map[string]interface{}{"valid": true})
}

func (s *MCPServer) handleListKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, err := s.keys.ListKeys(ctx)
	if err != nil {
		return toolError("list keys: %v", err)
	}

	now := time.Now()
	rows := make([]map[string]interface{}, 0, len(keys))
	for i := range keys {
		k := &keys[i]
		rows = append(rows, map[string]interface{}{
			"id":         k.ID,
			"api_key":    k.KeyValue,
			"user_id":    k.UserID,
			"is_active":  k.IsActive,
			"status":     k.Status(now),
			"created_at": k.CreatedAt,
			"last_used":  k.LastUsedAt,
		})
	}
	return successJSON(rows)
}

func (s *MCPServer) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users, err := s.keys.ListUsers(ctx)
	if err != nil {
		return toolError("list users: %v", err)
	}
	return successJSON(users)
}

func (s *MCPServer) handleRevokeKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetInt("id", 0)
	if id <= 0 {
		return toolError("missing required parameter %q", "id")
	}

	if err := s.keys.RevokeKey(ctx, int64(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			return toolError("invalid key id %d", id)
		case errors.Is(err, store.ErrNotFound):
			return toolError("api key %d not found", id)
		default:
			return toolError("revoke key: %v", err)
		}
	}
	return successJSON(map[string]interface{}{"deleted": true, "id": id})
}

func (s *MCPServer) handleDeactivateKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetInt("id", 0)
	if id <= 0 {
		return toolError("missing required parameter %q", "id")
	}

	if err := s.keys.DeactivateKey(ctx, int64(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			return toolError("invalid key id %d", id)
		case errors.Is(err, store.ErrNotFound):
			return toolError("api key %d not found", id)
		default:
			return toolError("deactivate key: %v", err)
		}
	}
	return successJSON(map[string]interface{}{"deactivated": true, "id": id})
}

func (s *MCPServer) handleRegisterUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	first, err := request.RequireString("first_name")
	if err != nil {
		return toolError("missing required parameter %q", "first_name")
	}
	last, err := request.RequireString("last_name")
	if err != nil {
		return toolError("missing required parameter %q", "last_name")
	}
	email, err := request.RequireString("email_address")
	if err != nil {
		return toolError("missing required parameter %q", "email_address")
	}

	user, keyValue, err := s.keys.Register(ctx, first, last, email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			return toolError("all fields are required")
		case errors.Is(err, store.ErrDuplicateEmail):
			return toolError("email %q is already registered", email)
		default:
			return toolError("register user: %v", err)
		}
	}

	return successJSON(map[string]interface{}{
		"user_id": user.ID,
		"api_key": keyValue,
	})
}

// ---------------------------------------------------------------------------
// Response builders
// ---------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
