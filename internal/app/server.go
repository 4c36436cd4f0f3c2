package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aidalabs/drive-connector/internal/auth"
	"github.com/aidalabs/drive-connector/internal/config"
	"github.com/aidalabs/drive-connector/internal/connector"
	"github.com/aidalabs/drive-connector/internal/httpapi"
)

// StartHTTPServer starts the JSON API server with authentication
func StartHTTPServer(service *connector.Service, settings *config.Settings) error {
	srv, err := NewHTTPServer(service, settings)
	if err != nil {
		return err
	}

	slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
	return srv.ListenAndServe()
}

// NewHTTPServer creates the JSON API server with authentication middleware
func NewHTTPServer(service *connector.Service, settings *config.Settings) (*http.Server, error) {
	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	handler := authMiddleware(httpapi.NewServer(service).Router())
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	return &http.Server{
		Addr:    addr,
		Handler: handler,
	}, nil
}
