// Package mcp assembles the MCP server exposing the connector's search
// operations as tools.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aidalabs/drive-connector/internal/connector"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string
	Service *connector.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Service != nil {
		RegisterDriveSearchTool(s, cfg.Service)
		RegisterSemanticSearchTool(s, cfg.Service)
		RegisterCatalogLookupTool(s, cfg.Service)
	}

	return s
}
