package directory

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadSeed builds an in-memory directory from a JSON file containing an
// array of profiles:
//
//	[{"user_id": "emp-1", "name": "Asha Rao", "role": "staff"}, ...]
//
// An empty path yields an empty directory; the staff report then falls back
// to placeholder names.
func LoadSeed(path string) (*InMemoryDirectory, error) {
	if path == "" {
		return NewInMemory(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory seed: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("parse directory seed: %w", err)
	}
	return NewInMemory(profiles...), nil
}
