package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var asJSON bool

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
