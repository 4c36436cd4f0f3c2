package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/aidalabs/drive-connector/internal/config"
	"github.com/aidalabs/drive-connector/internal/connector"
	mcputil "github.com/aidalabs/drive-connector/internal/mcp"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartHTTPServer   func(*connector.Service, *config.Settings) error
	CreateService     func(*config.Settings) (*connector.Service, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:    config.LoadSettingsWithFlags,
		ValidSettings:   config.ValidateSettings,
		StartHTTPServer: StartHTTPServer,
		CreateService:   connector.NewService,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Always log to stderr so stdio transports keep stdout clean
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting drive connector", "version", version)
	config.Log(settings)

	service, err := params.CreateService(settings)
	if err != nil {
		return fmt.Errorf("failed to create connector service: %w", err)
	}
	defer func() {
		if err := service.Close(); err != nil {
			slog.Error("Failed to close connector service", "error", err)
		}
	}()

	if settings.Transport == config.TransportStdio {
		mcpServer := mcputil.CreateServer(mcputil.ServerConfig{
			Name:    "drive-connector",
			Version: version,
			Service: service,
		})

		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting HTTP server", "host", settings.Host, "port", settings.Port)
	return params.StartHTTPServer(service, settings)
}
