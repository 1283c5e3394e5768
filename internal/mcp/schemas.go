package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestStatementTool returns the tool definition for ingest_statement
func ingestStatementTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_statement",
		Description: "Ingest one xAPI statement into the normalized store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"xapi": map[string]interface{}{
					"type":        "string",
					"description": "The xAPI statement as a JSON string (actor, verb, and object are required)",
				},
			},
			Required: []string{"xapi"},
		},
	}
}

// getReportTool returns the tool definition for get_report
func getReportTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_report",
		Description: "Fetch stored statements joined with their actor, verb, object, and result dimensions, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of rows to return (1-500)",
					"default":     20,
					"minimum":     1,
					"maximum":     500,
				},
			},
		},
	}
}

// getContentTypesTool returns the tool definition for get_content_types
func getContentTypesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_content_types",
		Description: "List the content types known to the external content-authoring catalog, if present",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
