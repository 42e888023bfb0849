package utils

import (
	"fmt"
	"os"
	"strings"
)

// ReadReferenceSchema reads the hand-authored reference-table description.
// An empty path means no reference table is configured.
func ReadReferenceSchema(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read reference schema file '%s': %w", path, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// DefaultOutputFilePath returns the default output file for a command.
func DefaultOutputFilePath(table, commandName string) string {
	switch commandName {
	case "enrich":
		return fmt.Sprintf("%s_schema.txt", table)
	default:
		return fmt.Sprintf("%s_profile.txt", table)
	}
}
