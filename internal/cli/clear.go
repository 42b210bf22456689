package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every chunk from the vector store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, rootDir, false, log)
		if err != nil {
			return err
		}
		defer a.Close()

		reply, err := a.controller.Handle(cmd.Context(), "clear")
		if err != nil {
			return err
		}
		fmt.Println(reply.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
