package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xapikatchu/xapikatchu/internal/ingester"
	"github.com/xapikatchu/xapikatchu/internal/parser"
	"github.com/xapikatchu/xapikatchu/internal/storage"
)

const sampleStatement = `{
	"actor": {"name": "Ada", "mbox": "mailto:ada@example.com"},
	"verb": {"id": "http://adlnet.gov/expapi/verbs/completed", "display": {"en-US": "completed"}},
	"object": {"id": "https://lms.example.com/activity/quiz-1", "definition": {"name": {"en-US": "Quiz 1"}}}
}`

func setupMCPServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:", storage.Config{Prefix: "xapikatchu_"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ing := ingester.New(parser.New("en-US"), store, nil, ingester.Options{})
	return NewServer(store, ing)
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestIngestStatementTool(t *testing.T) {
	s := setupMCPServer(t)
	ctx := context.Background()

	t.Run("ingests a valid statement", func(t *testing.T) {
		result, err := s.handleIngestStatement(ctx, toolRequest(map[string]interface{}{
			"xapi": sampleStatement,
		}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), `"ingested": true`)
	})

	t.Run("rejects missing xapi parameter", func(t *testing.T) {
		_, err := s.handleIngestStatement(ctx, toolRequest(map[string]interface{}{}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})

	t.Run("rejects a malformed statement", func(t *testing.T) {
		_, err := s.handleIngestStatement(ctx, toolRequest(map[string]interface{}{
			"xapi": `{"verb": {"id": "v"}}`,
		}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeMalformedStatement, mcpErr.Code)
	})
}

func TestGetReportTool(t *testing.T) {
	s := setupMCPServer(t)
	ctx := context.Background()

	_, err := s.handleIngestStatement(ctx, toolRequest(map[string]interface{}{
		"xapi": sampleStatement,
	}))
	require.NoError(t, err)

	t.Run("returns stored statements", func(t *testing.T) {
		result, err := s.handleGetReport(ctx, toolRequest(map[string]interface{}{}))
		require.NoError(t, err)

		text := resultText(t, result)
		assert.Contains(t, text, `"count": 1`)
		assert.Contains(t, text, "mailto:ada@example.com")
		assert.Contains(t, text, "completed")
	})

	t.Run("rejects out-of-range limit", func(t *testing.T) {
		_, err := s.handleGetReport(ctx, toolRequest(map[string]interface{}{
			"limit": float64(0),
		}))
		require.Error(t, err)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})
}

func TestGetContentTypesTool(t *testing.T) {
	s := setupMCPServer(t)

	result, err := s.handleGetContentTypes(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, `"available": false`)
}
