package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/csvchat/csvchat/internal/config"
	_ "github.com/csvchat/csvchat/internal/store/duckdb"
	_ "github.com/csvchat/csvchat/internal/store/sqlite"
)

var (
	csvFile       string
	tableName     string
	engine        string
	storePath     string
	geminiAPIKey  string
	model         string
	referenceFile string
	keepTable     bool
)

var rootCmd = &cobra.Command{
	Use:   "csvchat",
	Short: "Ask natural-language questions about a CSV file",
	Long: `csvchat loads a tabular CSV file, profiles its columns, enriches the schema
through the Gemini API, and answers free-form questions by translating them
into SQL executed against an embedded analytical store.`,
	PersistentPreRunE: initFlagsAndConfig,
}

// initFlagsAndConfig resolves configuration from flags and the environment.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	// A .env file is optional; flags and the environment win either way.
	_ = godotenv.Load()

	if geminiAPIKey == "" {
		geminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	return nil
}

// buildConfig assembles the resolved configuration for a command run.
func buildConfig() config.Config {
	cfg := config.Default()
	cfg.Store.Engine = strings.ToLower(engine)
	cfg.Store.Path = storePath
	cfg.GeminiAPIKey = geminiAPIKey
	if model != "" {
		cfg.Model = model
	}
	return cfg
}

func validateEngine(engine string) error {
	supportedEngines := []string{"duckdb", "sqlite"}
	for _, supported := range supportedEngines {
		if engine == supported {
			return nil
		}
	}
	return fmt.Errorf("unsupported engine: %s (only %s are supported)", engine, strings.Join(supportedEngines, ", "))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&csvFile, "file", "f", "", "Path to the CSV file to ingest - MANDATORY")
	rootCmd.PersistentFlags().StringVar(&tableName, "table", "", "Name of the materialized table (defaults to the file name)")
	rootCmd.PersistentFlags().StringVar(&engine, "engine", "duckdb", "Store engine (duckdb, sqlite)")
	rootCmd.PersistentFlags().StringVar(&storePath, "db", "", "Store file path (empty for in-memory)")
	rootCmd.PersistentFlags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Gemini model to use for enrichment and translation")
	rootCmd.PersistentFlags().StringVar(&referenceFile, "reference", "", "Path to a hand-authored reference-table schema description")
	rootCmd.PersistentFlags().BoolVar(&keepTable, "keep-table", false, "Keep the materialized table in the store file after the session ends")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(enrichCmd)
}
