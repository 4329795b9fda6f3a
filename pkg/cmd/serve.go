package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/codespace/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the http server and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.NewApp(configPath)
		if err != nil {
			return err
		}

		return a.Run()
	},
}

func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}
