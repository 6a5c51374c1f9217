package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"doorman/internal/ipc"
)

func newSayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "say <message>",
		Short: "Broadcast a server-wide message through the bot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return fmt.Errorf("message must not be empty")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Say(message); err != nil {
					return fmt.Errorf("broadcast: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Message sent.")
				return nil
			})
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile regular-group membership for all tracked clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Sync(); err != nil {
					return fmt.Errorf("sync: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Sync triggered.")
				return nil
			})
		},
	}
}

func newLinkCommand(ctx *commandContext) *cobra.Command {
	var gameID string

	cmd := &cobra.Command{
		Use:   "link <token> <user-id>",
		Short: "Redeem a link token and connect a voice identity to a member account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			userID, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Link(token, userID, gameID)
				if err != nil {
					return fmt.Errorf("link: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Linked voice identity %s to member %d.\n", resp.VoiceUID, userID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&gameID, "game-id", "", "Game account id to record with the link")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Disconnect the bot from the voice server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return fmt.Errorf("stop: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Bot stopped.")
				return nil
			})
		},
	}
}
