package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aidalabs/drive-connector/internal/catalog"
	"github.com/aidalabs/drive-connector/internal/connector"
	"github.com/aidalabs/drive-connector/internal/drive"
	"github.com/aidalabs/drive-connector/internal/semantic"
)

// DriveSearchArgument defines the keyword search parameters.
type DriveSearchArgument struct {
	Query string `json:"query" jsonschema_description:"Search query; bilingual synonyms and person names are detected automatically"`
}

// DriveSearchHandler handles the drive_search MCP tool.
type DriveSearchHandler struct {
	service *connector.Service
}

// NewDriveSearchHandler creates a new drive search handler.
func NewDriveSearchHandler(service *connector.Service) *DriveSearchHandler {
	return &DriveSearchHandler{service: service}
}

// Handle executes the two-tier keyword search and formats the results.
func (h *DriveSearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args DriveSearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	result, err := h.service.SmartSearch(ctx, args.Query)
	if err != nil {
		if errors.Is(err, drive.ErrNoCredentials) {
			return errorResult("Drive credentials are not configured. Provide a credentials file first."), nil, nil
		}
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	if result.Total == 0 {
		return textResult(fmt.Sprintf("No files found for query: %s", args.Query)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d files for '%s'", result.Total, args.Query))
	if result.Person != "" {
		sb.WriteString(fmt.Sprintf(" (person detected: %s", result.Person))
		if result.Expanded {
			sb.WriteString(", expanded to all files")
		}
		sb.WriteString(")")
	}
	sb.WriteString(":\n\n")

	for i, rec := range result.Files {
		sb.WriteString(fmt.Sprintf("%d. %s (id: %s)\n", i+1, rec.Name, rec.ID))
	}
	sb.WriteString(fmt.Sprintf("\nSearched terms: %s\n", strings.Join(result.Terms, ", ")))

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *DriveSearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "drive_search",
		Description: "Search drive files by keywords with bilingual synonym expansion and person detection",
	}
}

// RegisterDriveSearchTool registers the drive search tool with an MCP server.
func RegisterDriveSearchTool(server *mcp.Server, service *connector.Service) {
	handler := NewDriveSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// SemanticSearchArgument defines the vector search parameters.
type SemanticSearchArgument struct {
	Query string `json:"query" jsonschema_description:"Natural-language query to match against indexed document chunks"`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"Number of chunks to return (default 3)"`
}

// SemanticSearchHandler handles the semantic_search MCP tool.
type SemanticSearchHandler struct {
	service *connector.Service
}

// NewSemanticSearchHandler creates a new semantic search handler.
func NewSemanticSearchHandler(service *connector.Service) *SemanticSearchHandler {
	return &SemanticSearchHandler{service: service}
}

// Handle runs the similarity query and formats scored chunks.
func (h *SemanticSearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SemanticSearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	hits, err := h.service.SemanticSearch(ctx, args.Query, args.TopK)
	if err != nil {
		if errors.Is(err, semantic.ErrNoIndex) {
			return errorResult("The semantic index has not been built yet. Run the index_semantic operation first."), nil, nil
		}
		return errorResult(fmt.Sprintf("Semantic search failed: %s", err)), nil, nil
	}

	if len(hits) == 0 {
		return textResult(fmt.Sprintf("No similar chunks found for: %s", args.Query)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Top %d chunks for '%s':\n\n", len(hits), args.Query))
	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("### %d. %s (similarity %.4f)\n", i+1, hit.Chunk.SourceFileName, hit.Similarity))
		sb.WriteString(hit.Chunk.TextPreview)
		sb.WriteString("\n\n")
	}

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *SemanticSearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "semantic_search",
		Description: "Find document chunks semantically similar to a natural-language query",
	}
}

// RegisterSemanticSearchTool registers the semantic search tool with an MCP server.
func RegisterSemanticSearchTool(server *mcp.Server, service *connector.Service) {
	handler := NewSemanticSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// CatalogLookupArgument defines the catalog lookup parameters.
type CatalogLookupArgument struct {
	Query string `json:"query" jsonschema_description:"File name terms to look up in the snapshot catalog"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of files to return"`
}

// CatalogLookupHandler handles the catalog_lookup MCP tool.
type CatalogLookupHandler struct {
	service *connector.Service
}

// NewCatalogLookupHandler creates a new catalog lookup handler.
func NewCatalogLookupHandler(service *connector.Service) *CatalogLookupHandler {
	return &CatalogLookupHandler{service: service}
}

// Handle searches the snapshot catalog without touching the remote store.
func (h *CatalogLookupHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CatalogLookupArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	files, err := h.service.CatalogSearch(args.Query, args.Limit)
	if err != nil {
		if errors.Is(err, catalog.ErrNoCatalog) {
			return errorResult("The file catalog has not been built yet. Run the index_drive operation first."), nil, nil
		}
		return errorResult(fmt.Sprintf("Catalog lookup failed: %s", err)), nil, nil
	}

	if len(files) == 0 {
		return textResult(fmt.Sprintf("No cataloged files match: %s", args.Query)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d cataloged files for '%s':\n\n", len(files), args.Query))
	for i, rec := range files {
		sb.WriteString(fmt.Sprintf("%d. %s\n   path: %s\n   id: %s\n", i+1, rec.Name, rec.Path, rec.ID))
	}

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *CatalogLookupHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "catalog_lookup",
		Description: "Look up files by name in the locally indexed drive snapshot",
	}
}

// RegisterCatalogLookupTool registers the catalog lookup tool with an MCP server.
func RegisterCatalogLookupTool(server *mcp.Server, service *connector.Service) {
	handler := NewCatalogLookupHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
