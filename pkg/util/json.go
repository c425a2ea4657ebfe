package util

import (
	"encoding/json"

	"github.com/pterm/pterm"
)

// PrintPrettyJSON prints v as indented JSON.
func PrintPrettyJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	pterm.Println(string(b))
	return nil
}
