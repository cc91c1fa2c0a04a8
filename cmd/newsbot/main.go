package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsbot",
		Short: "Collect financial and crypto news and post it to a channel",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(runDaemonCmd())
	root.AddCommand(fetchCmd())
	root.AddCommand(recentCmd())
	root.AddCommand(seenCmd())

	return root
}

func runDaemonCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with poll loops and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func fetchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and filter once, print what would be delivered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func recentCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently delivered articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecent(jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "max articles to show")
	return cmd
}

func seenCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "seen",
		Short: "Show dedup store contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeen(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max records to show")
	return cmd
}
