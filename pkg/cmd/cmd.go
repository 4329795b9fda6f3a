// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "codespace",
		Short: "Workspace storage and sync engine for coding assignments",
		Long: "codespace 管理课程代码工作区：每个工作区对应一个独立的版本化 bucket，" +
			"支持模板克隆、提交快照、协同会话落盘与运行容器的文件同步.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file path or directory")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "print verbose output")

	registerServeCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
