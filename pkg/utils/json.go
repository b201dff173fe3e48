package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSONFile writes data as indented JSON, replacing filePath atomically
func WriteJSONFile(filePath string, data any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON for %s: %w", filePath, err)
	}
	return AtomicWriteFile(filePath, append(encoded, '\n'), 0644)
}

// ReadJSONFile reads a JSON file into target
func ReadJSONFile(filePath string, target any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from %s: %w", filePath, err)
	}
	return nil
}
