package matching

import (
	"encoding/json"
	"os"
)

// DumpToTmpFile writes the batch as indented JSON to a new temporary file and
// returns its name.
func (b *MatchBatch) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return "", err
	}
	return file.Name(), nil
}
