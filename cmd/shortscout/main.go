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
		Use:   "shortscout",
		Short: "Scout short-form video ideas from search, channels, and trending listings",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(scrapeCmd())
	root.AddCommand(ideasCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func scrapeCmd() *cobra.Command {
	var (
		sources []string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run acquisition strategies and store new candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(sources, limit)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to scrape (api-search,channel,trending)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max candidates per source (default: from config)")
	return cmd
}

func ideasCmd() *cobra.Command {
	var (
		jsonOutput bool
		srcFilter  string
		minScore   float64
		limit      int
		outFile    string
	)

	cmd := &cobra.Command{
		Use:   "ideas",
		Short: "Show or export canonical ideas from stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdeas(jsonOutput, srcFilter, minScore, limit, outFile)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&srcFilter, "source", "", "filter by source")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum engagement score")
	cmd.Flags().IntVar(&limit, "limit", 50, "max ideas to show")
	cmd.Flags().StringVar(&outFile, "out", "", "export as JSONL to file")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored record counts by source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline run summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
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

	cmd.Flags().IntVar(&port, "port", 8080, "server port")
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
