package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go_branch_chat/markdown"
	"go_branch_chat/render"
)

func newRenderCommand() *cobra.Command {
	var asJSON bool
	var width int
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Parse markdown into blocks and print them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			content, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			blocks := markdown.Parse(string(content))

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(blocks)
			}
			_, err = fmt.Fprintln(out, render.NewRenderer(nil, width).Blocks(blocks))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the block model as JSON")
	cmd.Flags().IntVar(&width, "width", 80, "terminal width used for rules")
	return cmd
}
