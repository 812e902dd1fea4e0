package ingredients

import (
	"encoding/json"
	"fmt"
	"os"

	"gorm.io/gorm"
)

// LoadFromFile bulk-loads ingredients from a JSON file on disk
// The file holds an array of {"name": ..., "measurement_unit": ...} objects
func LoadFromFile(db *gorm.DB, path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read ingredients file: %w", err)
	}

	var entries []ImportIngredient
	if err := json.Unmarshal(data, &entries); err != nil {
		return ImportResult{}, fmt.Errorf("parse ingredients file: %w", err)
	}

	return importEntries(db, entries), nil
}
