// Command ytinsight analyzes a channel, playlist or search on YouTube.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ytinsight/config"
	"ytinsight/internal/logging"
)

var version = "dev"

type options struct {
	configPath string
	verbose    bool
	format     string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "ytinsight",
		Short:        "YouTube channel and title analytics",
		Long:         "ytinsight fetches a channel, playlist or search from the YouTube Data API and reports performance scores, title heuristics, content gaps and upload timing.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			level := cfg.LogLevel
			if opts.verbose {
				level = "debug"
			}
			if err := logging.Setup(cmd.ErrOrStderr(), level, cfg.LogFormat); err != nil {
				return err
			}
			if opts.format != "json" && opts.format != "text" {
				return fmt.Errorf("unknown output format %q", opts.format)
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (JSON or YAML)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "json", "Output format: json or text")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newGapCmd(opts),
		newTitleCmd(opts),
		newQuotaCmd(opts),
	)
	return root
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var maxVideos int
	cmd := &cobra.Command{
		Use:   "analyze <query>",
		Short: "Score the videos of a channel, playlist or search",
		Example: `  ytinsight analyze @GoogleDevelopers
  ytinsight analyze "https://www.youtube.com/playlist?list=PL123" -n 100
  ytinsight analyze "golang tutorial" --format text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.session.Analyze(cmd.Context(), args[0], maxVideos)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.format, rep, func() error {
				return printReport(cmd.OutOrStdout(), rep)
			})
		},
	}
	cmd.Flags().IntVarP(&maxVideos, "max", "n", 0, "Maximum videos to fetch (default from config)")
	return cmd
}

func newGapCmd(opts *options) *cobra.Command {
	var (
		maxVideos int
		region    string
		category  string
	)
	cmd := &cobra.Command{
		Use:   "gap <query>",
		Short: "Compare a channel's topics with trending videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if region != "" {
				opts.cfg.Region = region
			}
			a, err := newApp(cmd.Context(), opts.cfg, true, withCategory(category))
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.session.Gap(cmd.Context(), args[0], maxVideos)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.format, rep, func() error {
				return printGap(cmd.OutOrStdout(), rep)
			})
		},
	}
	cmd.Flags().IntVarP(&maxVideos, "max", "n", 0, "Maximum channel videos to fetch (default from config)")
	cmd.Flags().StringVar(&region, "region", "", "Trending region code (default from config)")
	cmd.Flags().StringVar(&category, "category", "", "Trending video category id")
	return cmd
}

func newTitleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "title <text>",
		Short: "Score a title from its text alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := textAnalyzer(opts.cfg).Analyze(args[0])
			return render(cmd.OutOrStdout(), opts.format, res, func() error {
				return printTitle(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newQuotaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's quota usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			u := a.ledger.CurrentUsage(cmd.Context())
			return render(cmd.OutOrStdout(), opts.format, u, func() error {
				return printUsage(cmd.OutOrStdout(), u)
			})
		},
	}
}
