package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportHTTP {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: drive.credentials_file", "value", s.Drive.CredentialsFile)
	logger.InfoContext(ctx, "Config: drive.root_folder", "value", s.Drive.RootFolder)
	logger.InfoContext(ctx, "Config: drive.page_size", "value", s.Drive.PageSize)

	logger.InfoContext(ctx, "Config: index.base_dir", "value", s.Index.BaseDir)
	logger.InfoContext(ctx, "Config: index.chunk_budget", "value", s.Index.ChunkBudget)
	logger.InfoContext(ctx, "Config: index.checkpoint_every", "value", s.Index.CheckpointEvery)
	logger.InfoContext(ctx, "Config: index.payload_limit", "value", s.Index.PayloadLimit)

	logger.InfoContext(ctx, "Config: embedder.url", "value", s.Embedder.URL)
	logger.InfoContext(ctx, "Config: embedder.model", "value", s.Embedder.Model)

	logger.InfoContext(ctx, "Config: search.default_top_k", "value", s.Search.DefaultTopK)
	logger.InfoContext(ctx, "Config: search.primary_language", "value", s.Search.PrimaryLanguage)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.String("index_base_dir", s.Index.BaseDir),
		slog.String("embedder_model", s.Embedder.Model),
	)
}
