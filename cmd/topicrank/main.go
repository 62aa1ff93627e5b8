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
		Use:   "topicrank",
		Short: "Score topics by citation impact and recent activity",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(scoreCmd())
	root.AddCommand(topicsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func scoreCmd() *cobra.Command {
	var topicID string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute impact/activity scores",
		Long: `Compute impact/activity scores for the whole topic population
(percentile-normalized) or, with --topic, raw composites for one topic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(topicID)
		},
	}

	cmd.Flags().StringVar(&topicID, "topic", "", "score a single topic by id (skips normalization)")
	return cmd
}

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage the topic population",
	}

	var (
		category   string
		openalexID string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicsAdd(args[0], category, openalexID)
		},
	}
	add.Flags().StringVar(&category, "category", "", "domain/category label")
	add.Flags().StringVar(&openalexID, "openalex-id", "", "OpenAlex concept id (e.g. C154945302); omit for Wikipedia-only scoring")

	var jsonOutput bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List topics with their scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicsList(jsonOutput)
		},
	}
	list.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	cmd.AddCommand(add)
	cmd.AddCommand(list)
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
