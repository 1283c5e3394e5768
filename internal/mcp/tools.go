package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/xapikatchu/xapikatchu/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeMalformedStatement = -32001 // Statement could not be parsed
)

// handleIngestStatement handles the ingest_statement tool invocation
func (s *Server) handleIngestStatement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	xapi, ok := args["xapi"].(string)
	if !ok || xapi == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "xapi parameter is required", map[string]interface{}{
			"param":  "xapi",
			"reason": "missing or empty",
		})
	}

	err := s.ingester.Ingest(ctx, []byte(xapi))
	if errors.Is(err, types.ErrMalformedStatement) {
		return nil, newMCPError(ErrorCodeMalformedStatement, "statement could not be parsed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"ingested": true,
	})), nil
}

// handleGetReport handles the get_report tool invocation
func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 500 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 500", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	rows, err := s.storage.CompleteTable(ctx, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "report query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":      len(rows),
		"columns":    s.storage.ColumnTitles(),
		"statements": rows,
	})), nil
}

// handleGetContentTypes handles the get_content_types tool invocation
func (s *Server) handleGetContentTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cts, err := s.storage.ContentTypes(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "content type query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"available":     cts != nil,
		"content_types": cts,
	}
	if cts == nil {
		response["message"] = "content-authoring catalog tables not present in this database"
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
