package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"doorman/internal/ipc"
)

func newClientsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List clients the bot currently tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Clients()
				if err != nil {
					return fmt.Errorf("query clients: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(resp.Clients) == 0 {
					fmt.Fprintln(out, "No clients connected.")
					return nil
				}
				fmt.Fprintln(out, renderClientsTable(resp.Clients))
				return nil
			})
		},
	}
}

func renderClientsTable(clients []ipc.ClientInfo) string {
	headers := []string{"ID", "Name", "Channel", "Groups", "Linked"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft}

	rows := make([][]string, 0, len(clients))
	for _, client := range clients {
		groups := make([]string, 0, len(client.ServerGroups))
		for _, id := range client.ServerGroups {
			groups = append(groups, strconv.Itoa(id))
		}
		rows = append(rows, []string{
			strconv.Itoa(client.ID),
			client.Name,
			strconv.Itoa(client.ChannelID),
			strings.Join(groups, ","),
			yesNo(client.Linked),
		})
	}
	return renderTable(headers, rows, aligns)
}
