package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csvchat/csvchat/internal/genai"
	"github.com/csvchat/csvchat/internal/session"
	"github.com/csvchat/csvchat/internal/utils"
)

// displayRowCap bounds how many result rows are printed per question.
const displayRowCap = 100

var chatCmd = &cobra.Command{
	Use:     "chat",
	Short:   "Start an interactive question-answering session over the CSV file",
	Long:    `Ingests the CSV file, enriches its schema once through the Gemini API, and then reads questions from stdin until "exit". Each question is translated into SQL and executed against the store; the generated query and its rows (or the failure) are printed.`,
	Example: `./csvchat chat --file ./sales.csv --engine duckdb --reference ./regions_schema.txt`,
	RunE:    runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	if csvFile == "" {
		return fmt.Errorf("--file is required")
	}
	if err := validateEngine(strings.ToLower(engine)); err != nil {
		return err
	}
	cfg := buildConfig()

	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("no Gemini API key provided. Please set the GEMINI_API_KEY environment variable or use --gemini-api-key")
	}

	referenceSchema, err := utils.ReadReferenceSchema(referenceFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	llm, err := genai.NewClient(ctx, genai.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.Model})
	if err != nil {
		return err
	}
	defer llm.Close()

	if err := llm.IsAPIKeyValid(ctx); err != nil {
		return fmt.Errorf("gemini API key validation failed: %w", err)
	}

	sess := session.New(session.Options{
		CSVPath:         csvFile,
		TableName:       tableName,
		ReferenceSchema: referenceSchema,
		Store:           cfg.Store,
		DropOnClose:     !keepTable,
	}, llm)
	defer sess.Close()

	log.Println("INFO: Starting chat session", "file:", csvFile, "engine:", cfg.Store.Engine)

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("session start failed: %w", err)
	}
	if _, err := sess.EnrichOnce(ctx); err != nil {
		return fmt.Errorf("session start failed: %w", err)
	}

	fmt.Printf("Ready. Ask questions about '%s' (type 'exit' to quit).\n", sess.TableName())

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nask> ")
		line, readErr := reader.ReadString('\n')
		question := strings.TrimSpace(line)
		if strings.EqualFold(question, "exit") {
			break
		}

		result, askErr := sess.Ask(ctx, question)
		switch {
		case errors.Is(askErr, session.ErrBlankQuestion):
			// Nothing to do for an empty line.
		case askErr != nil:
			return askErr
		default:
			printQueryResult(result)
		}

		if readErr != nil {
			break // EOF or read failure ends the loop like "exit"
		}
	}

	log.Println("INFO: Chat session ended.")
	return nil
}

func printQueryResult(result session.QueryResult) {
	if result.Query != "" {
		fmt.Printf("query: %s\n", result.Query)
	}
	if result.Failed() {
		fmt.Printf("query failed: %s\n", result.FailureReason)
		return
	}
	if len(result.Rows) == 0 {
		fmt.Println("(zero rows returned)")
		return
	}

	fmt.Println(strings.Join(result.Columns, " | "))
	for i, row := range result.Rows {
		if i == displayRowCap {
			fmt.Printf("... (%d more rows)\n", len(result.Rows)-displayRowCap)
			break
		}
		cells := make([]string, len(row))
		for c, value := range row {
			if value == nil {
				cells[c] = "NULL"
			} else {
				cells[c] = fmt.Sprintf("%v", value)
			}
		}
		fmt.Println(strings.Join(cells, " | "))
	}
}
