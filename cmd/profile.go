package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/profiler"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Short:   "Print the statistical column profile of the CSV file",
	Long:    `Loads the CSV file and prints the derived column profile (types, ranges, distinct values) without calling the Gemini API or touching a store.`,
	Example: `./csvchat profile --file ./sales.csv`,
	RunE:    runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	if csvFile == "" {
		return fmt.Errorf("--file is required")
	}

	ds, err := dataset.LoadCSV(csvFile)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	schema := profiler.Profile(ds)
	fmt.Print(schema.PromptText())
	return nil
}
