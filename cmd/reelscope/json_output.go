package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// writeJSON prints v as one indented document on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := newJSONEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newJSONEncoder leaves <, > and & alone so URLs and comment text stay
// readable when piped into jq.
func newJSONEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}
