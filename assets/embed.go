package assets

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// godsJSON contains the canonical SMITE 2 god roster in canonical sort order.
//
//go:embed gods.json
var godsJSON []byte

type godFile struct {
	Gods []string `json:"gods"`
}

// GodNames decodes the embedded roster. The returned slice is freshly
// allocated; callers may not rely on sharing.
func GodNames() ([]string, error) {
	if len(godsJSON) == 0 {
		return nil, fmt.Errorf("embedded gods.json is empty")
	}
	var f godFile
	if err := json.Unmarshal(godsJSON, &f); err != nil {
		return nil, err
	}
	if len(f.Gods) == 0 {
		return nil, fmt.Errorf("embedded gods.json has no entries")
	}
	return f.Gods, nil
}
