package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or http")
	flags.StringP("host", "H", "", "Host for HTTP transport")
	flags.IntP("port", "p", 0, "Port for HTTP transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	flags.String("drive-credentials-file", "", "Path to the drive credentials JSON file")
	flags.String("drive-root-folder", "", "Drive folder id to start from")
	flags.Int64("drive-page-size", 0, "Drive listing page size")

	flags.String("index-base-dir", "", "Directory for snapshots, caches and indexes")
	flags.Int("index-chunk-budget", 0, "Character budget per embedded chunk")
	flags.Int("index-checkpoint-every", 0, "Items between walk checkpoints")
	flags.Int("index-payload-limit", 0, "Maximum extracted characters per file")

	flags.String("embedder-url", "", "Embedding server base URL")
	flags.String("embedder-model", "", "Embedding model name")

	flags.Int("search-default-top-k", 0, "Default number of semantic search results")
	flags.String("search-primary-language", "", "Primary query language: pt or en")
	flags.Int("search-max-results", 0, "Maximum results for listings and catalog search")
}
