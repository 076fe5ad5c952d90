// Package cli wires the cobra commands of the branchchat binary.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"go_branch_chat/pkg/logging"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "branchchat",
		Short:         "Branching LLM chat: edit, regenerate and switch between reply variants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init()
		},
	}
	root.AddCommand(newServeCommand(), newChatCommand(), newRenderCommand())
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		logging.Logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
