package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"doorman/internal/ipc"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and bot status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("query status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func printStatus(out io.Writer, status *ipc.StatusResponse) {
	colorize := shouldColorize(out)

	state := "stopped"
	color := ansiYellow
	if status.Running {
		state = "running"
		color = ansiGreen
	}
	if status.LastError != "" {
		state = "error"
		color = ansiRed
	}
	if colorize {
		state = color + state + ansiReset
	}

	fmt.Fprintf(out, "Daemon:    %s (pid %d)\n", state, status.PID)
	fmt.Fprintf(out, "Nickname:  %s\n", status.Nickname)
	if status.Running {
		fmt.Fprintf(out, "Channel:   %d\n", status.HomeChannelID)
		fmt.Fprintf(out, "Clients:   %d\n", status.ClientCount)
		fmt.Fprintf(out, "Uptime:    %s\n", formatUptime(status.StartedAt))
	}
	fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
	fmt.Fprintf(out, "Lock file: %s\n", status.LockPath)
	if status.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", status.LastError)
	}
}

func formatUptime(startedAt time.Time) string {
	if startedAt.IsZero() {
		return "-"
	}
	return time.Since(startedAt).Truncate(time.Second).String()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
