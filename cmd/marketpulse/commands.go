package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"MarketPulse/internal/app"
	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/logging"
)

type cli struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "marketpulse",
		Short: "Scrape market news, enrich it with an LLM and alert on high-confidence calls",
		Long: `marketpulse scrapes news sites, stores unseen articles, asks an LLM for a
summary and a scored investment suggestion, and emails an alert when the
score clears the configured threshold.

Example usage:
  marketpulse serve              # HTTP API, cron schedule and workers
  marketpulse worker             # consume queued tasks only
  marketpulse scrape             # one synchronous scrape and enrichment pass
  marketpulse purge --enqueue    # queue a retention purge for the workers`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.configPath != "" {
				if err := os.Setenv("MARKETPULSE_CONFIG", c.configPath); err != nil {
					return err
				}
			}
			c.cfg = config.Load()
			if err := c.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			c.logger = logging.New(c.cfg.Logging.Level, c.cfg.Logging.Format)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (overrides MARKETPULSE_CONFIG)")

	root.AddCommand(
		c.serveCmd(),
		c.workerCmd(),
		c.taskCmd("scrape", "Scrape every configured site and enrich new articles", domain.TaskScrape),
		c.taskCmd("purge", "Delete articles older than the retention window", domain.TaskPurge),
		c.cacheCmd(),
		c.notifyCmd(),
		c.llmCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command, opts ...app.Option) (*app.Application, error) {
	return app.New(cmd.Context(), c.cfg, c.logger, opts...)
}

func (c *cli) serveCmd() *cobra.Command {
	var noWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context(), !noWorker)
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not consume tasks in this process")
	return cmd
}

func (c *cli) workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume tasks from the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Work(cmd.Context())
		},
	}
}

func (c *cli) taskCmd(use, short string, kind domain.TaskKind) *cobra.Command {
	var enqueue bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if enqueue {
				a, err := c.open(cmd)
				if err != nil {
					return err
				}
				defer a.Close()
				task, err := a.Enqueue(cmd.Context(), kind)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"task_id": task.ID, "kind": string(task.Kind)})
			}

			a, err := c.open(cmd, app.WithInlineQueue())
			if err != nil {
				return err
			}
			defer a.Close()
			outcomes, err := a.RunOnce(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), outcomes)
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "queue the task for a worker instead of running it here")
	return cmd
}

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Inspect or clear the LLM response cache"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache backend and entry count",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := c.open(cmd, app.WithInlineQueue())
				if err != nil {
					return err
				}
				defer a.Close()
				return printJSON(cmd.OutOrStdout(), a.Cache().Stats(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached LLM response",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := c.open(cmd, app.WithInlineQueue())
				if err != nil {
					return err
				}
				defer a.Close()
				if err := a.Cache().Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) notifyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "notify", Short: "Check the email alert configuration"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show notification configuration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := c.open(cmd, app.WithInlineQueue())
				if err != nil {
					return err
				}
				defer a.Close()
				return printJSON(cmd.OutOrStdout(), a.Notifications().Status())
			},
		},
		&cobra.Command{
			Use:   "test",
			Short: "Send a test email to every recipient",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := c.open(cmd, app.WithInlineQueue())
				if err != nil {
					return err
				}
				defer a.Close()
				if err := a.Notifications().SendTest(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "test email sent")
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) llmCmd() *cobra.Command {
	var (
		model  string
		output int
	)
	cmd := &cobra.Command{Use: "llm", Short: "Model pricing and cost estimates"}

	pricing := &cobra.Command{
		Use:   "pricing",
		Short: "List known models and their prices per million tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd, app.WithInlineQueue())
			if err != nil {
				return err
			}
			defer a.Close()

			engine := a.Engine()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tINPUT\tCACHED\tOUTPUT")
			for _, m := range engine.Models() {
				p, _ := engine.Pricing(m)
				fmt.Fprintf(w, "%s\t$%.3f\t$%.3f\t$%.3f\n", m, p.Input, p.CachedInput, p.Output)
			}
			return w.Flush()
		},
	}

	estimate := &cobra.Command{
		Use:   "estimate [file]",
		Short: "Estimate the cost of sending a text (file or stdin) to a model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			a, err := c.open(cmd, app.WithInlineQueue())
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd.OutOrStdout(), a.Engine().EstimateCost(string(raw), output, model))
		},
	}
	estimate.Flags().StringVar(&model, "model", "", "model to price (default: configured model)")
	estimate.Flags().IntVar(&output, "output-chars", 500, "expected answer length in characters")

	cmd.AddCommand(pricing, estimate)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
