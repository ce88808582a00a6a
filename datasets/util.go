package datasets

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
)

// readHeader returns the first row of a CSV document.
func readHeader(data []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return header, nil
}

// missingColumns returns the entries of required absent from header, in the
// order they are required.
func missingColumns(header, required []string) []string {
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// FindCSVInAssets finds the first CSV file in a directory.
func FindCSVInAssets(dir string) (string, error) {
	pattern := filepath.Join(dir, "*.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no CSV files found in %s", dir)
	}
	return matches[0], nil
}
