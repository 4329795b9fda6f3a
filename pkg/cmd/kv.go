package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "key-value store used for caches and collab modes",
		Aliases: []string{"keyvalue"},
	}

	kvTypesCmd = &cobra.Command{
		Use:     "types",
		Short:   "list compiled-in kv drivers",
		Aliases: []string{"list", "ls"},
		Run: func(cmd *cobra.Command, args []string) {
			types := kv.GetRegisteredKVTypes()
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	kvKeysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "list keys in the configured store, e.g. 'collab:mode:*'",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}

			return withKV(cmd.Context(), func(ctx context.Context, store kv.KVStore) error {
				keys, err := store.Keys(ctx, pattern)
				if err != nil {
					return err
				}

				sort.Strings(keys)

				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}

				return nil
			})
		},
	}

	// 只清理缓存命名空间，模式表不受影响.
	kvPurgeCacheCmd = &cobra.Command{
		Use:   "purge-cache [pattern]",
		Short: "drop cached permissions and version contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}

			return withKV(cmd.Context(), func(ctx context.Context, store kv.KVStore) error {
				n, err := cache.NewCache(store).Purge(ctx, pattern)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "purged %d cache entries\n", n)

				return nil
			})
		},
	}
)

// withKV 加载配置并连接 KV，fn 返回后关闭连接.
func withKV(ctx context.Context, fn func(context.Context, kv.KVStore) error) error {
	if err := configs.InitConfig(configPath); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if configs.GetConfig().KV.Type == string(kv.KVTypeMemory) {
		return fmt.Errorf("kv type is memory, nothing is shared with a running server")
	}

	client, err := kv.NewKVClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return fn(ctx, client.KVStore)
}

func registerKVCommands() {
	kvCmd.AddCommand(kvTypesCmd, kvKeysCmd, kvPurgeCacheCmd)
	rootCmd.AddCommand(kvCmd)
}
