package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// render writes v as indented JSON when --format=json, and calls text otherwise.
func render(cmd *cobra.Command, opts *RootOptions, v any, text func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
