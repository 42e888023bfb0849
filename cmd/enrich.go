package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/enricher"
	"github.com/csvchat/csvchat/internal/genai"
	"github.com/csvchat/csvchat/internal/profiler"
	"github.com/csvchat/csvchat/internal/utils"
)

var enrichCmd = &cobra.Command{
	Use:     "enrich",
	Short:   "Generate the enriched schema for the CSV file and write it to a file",
	Long:    `Loads the CSV file, profiles its columns, runs the one-shot Gemini enrichment, and writes the enriched schema to a file for review.`,
	Example: `./csvchat enrich --file ./sales.csv --out_file ./sales_schema.txt`,
	RunE:    runEnrich,
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if csvFile == "" {
		return fmt.Errorf("--file is required")
	}
	cfg := buildConfig()
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("no Gemini API key provided. Please set the GEMINI_API_KEY environment variable or use --gemini-api-key")
	}

	ds, err := dataset.LoadCSV(csvFile)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	schema := profiler.Profile(ds)

	ctx := cmd.Context()

	llm, err := genai.NewClient(ctx, genai.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.Model})
	if err != nil {
		return err
	}
	defer llm.Close()

	enriched, err := enricher.NewService(llm).Enrich(ctx, schema)
	if err != nil {
		return err
	}

	outputFile := cmd.Flag("out_file").Value.String()
	if outputFile == "" {
		outputFile = utils.DefaultOutputFilePath(schema.Table, "enrich")
	}
	if err := os.WriteFile(outputFile, []byte(enriched+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write enriched schema to file: %w", err)
	}

	log.Println("INFO: Enriched schema written to:", outputFile)
	return nil
}

func init() {
	var outputFile string
	enrichCmd.Flags().StringVarP(&outputFile, "out_file", "o", "", "File path to save the enriched schema to (defaults to <table>_schema.txt)")
}
