package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/storage/mq"
	"github.com/yeisme/codespace/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "message queue used for tree and workspace events",
		Aliases: []string{"messagequeue"},
	}

	mqTypesCmd = &cobra.Command{
		Use:     "types",
		Short:   "list compiled-in mq drivers",
		Aliases: []string{"list", "ls"},
		Run: func(cmd *cobra.Command, args []string) {
			types := mq.GetRegisteredMQTypes()
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	mqTopicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "list event topics and whether the current config publishes them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			events := configs.GetConfig().Events

			for _, group := range [][]string{queue.TreeTopics, queue.WorkspaceTopics} {
				for _, topic := range group {
					state := "off"
					if broadcast.TopicEnabled(events, topic) {
						state = "on"
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", topic, state)
				}
			}

			return nil
		},
	}
)

func registerMQCommands() {
	mqCmd.AddCommand(mqTypesCmd, mqTopicsCmd)
	rootCmd.AddCommand(mqCmd)
}
