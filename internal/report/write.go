package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write serializes the report as indented JSON to path, creating parent
// directories as needed. A failure here terminates the run; the report file
// is the whole point of the exercise.
func Write(path string, rep *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create output dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
