package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/codespace/pkg/configs"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect the effective configuration",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configs.InitConfig(configPath)
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		Run: func(cmd *cobra.Command, args []string) {
			used := configs.GetViper().ConfigFileUsed()
			if used == "" {
				used = "(defaults and CODESPACE_* environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)
		},
	}

	// 口令与密钥统一打码.
	configShowCmd = &cobra.Command{
		Use:     "show",
		Aliases: []string{"debug"},
		Short:   "print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				configs.GetViper().Debug()
			}

			b, err := sonic.ConfigStd.MarshalIndent(configs.GetConfig().Redacted(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	// 加载成功即表示通过 rule 校验.
	configCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "load and validate the configuration",
		Run: func(cmd *cobra.Command, args []string) {
			c := configs.GetConfig()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: db=%s kv=%s (shared=%t) mq=%s container=%s collab=%s\n",
				c.DB.GetDBType(), c.KV.Type, c.KV.Shared(), c.MQ.Type, c.Container.Mode, c.Collab.DefaultMode)
		},
	}
)

func registerConfigsCommands() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
