package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/storage/db"
	"github.com/yeisme/codespace/pkg/internal/workspace"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list all registered database types",
		Run: func(cmd *cobra.Command, args []string) {

			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")
			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+dbType)
			}
		},
	}

	// 只迁移表结构，不连接对象存储与消息队列.
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the workspaces table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			ctx := context.Background()

			client, err := db.New(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := workspace.NewRegistry(client.GetDB()).Migrate(ctx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database %q\n", configs.GetConfig().DB.GetDBType(), configs.GetConfig().DB.Database)

			return nil
		},
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
