package config

// Config holds all configuration for the application.
type Config struct {
	Store        StoreConfig
	GeminiAPIKey string
	Model        string
}

// StoreConfig holds configuration for the backing analytical store.
type StoreConfig struct {
	Engine string // "duckdb" or "sqlite"
	Path   string // store file path; empty means in-memory
}

// Default returns a baseline configuration. Values are overridden by flags in root.go.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Engine: "duckdb",
			Path:   "",
		},
		Model: "gemini-1.5-flash-latest",
	}
}
