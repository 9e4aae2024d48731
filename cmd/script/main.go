package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"dex-sentinel/internal/worker"
	"dex-sentinel/internal/worker/config"
	"dex-sentinel/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// 一次性任务与排查工具

type app struct {
	ctx      context.Context
	span     trace.Span
	shutdown func(context.Context) error
	tl       *zap.Logger
	core     *worker.Core
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, _, err := config.Load(config.Path())
	if err != nil {
		return err
	}

	a.shutdown = logger.InitTrace("dex-sentinel", "script")
	ctx, span := logger.StartSpan(cmd.Context(), "main", cmd.Name())
	a.span = span

	rootLogger := logger.NewLogger("script", logger.Options{Dir: cfg.Log.Dir})
	logger.SetLogLevel(cfg.Log.Level)
	a.ctx = ctx
	a.tl = logger.WithTrace(ctx, rootLogger)

	a.core, err = worker.New(cfg, a.tl)
	return err
}

func (a *app) close(*cobra.Command, []string) {
	if a.core != nil {
		a.core.Close()
	}
	if a.span != nil {
		a.span.End()
	}
	if a.shutdown != nil {
		_ = a.shutdown(context.Background())
	}
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:               "script",
		Short:             "dex-sentinel one-off tasks",
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
		PersistentPostRun: a.close,
	}
	root.AddCommand(
		a.scanCmd(),
		a.patternsCmd(),
		a.blacklistCmd(),
		a.historyCmd(),
		a.pairCmd(),
		a.eventsCmd(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "run one scan cycle now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startTime := time.Now()
			summary, err := a.core.RunScanOnce(a.ctx)
			if err != nil {
				return err
			}
			a.tl.Info("Task completed successfully",
				zap.String("cycle_id", summary.CycleID),
				zap.Int("fetched", summary.Fetched),
				zap.Any("outcomes", summary.Outcomes),
				zap.Duration("taken_time", time.Since(startTime)))
			return nil
		},
	}
}

func (a *app) patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "run pattern detection over stored records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.core.DetectPatterns(a.ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tTOKEN\tVALUE")
			for _, r := range report.Rugs {
				fmt.Fprintf(w, "rug\t%s\t%d\n", r.BaseToken, r.Occurrences)
			}
			for _, p := range report.Pumps {
				fmt.Fprintf(w, "pump\t%s\t%.2f%%\n", p.BaseToken, p.AvgChange)
			}
			return w.Flush()
		},
	}
}

func (a *app) blacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "inspect or persist the blacklist",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "print blacklisted symbols and developers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			coins, devs, err := a.core.Blacklist(a.ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "coins (%d): %s\n", len(coins), strings.Join(coins, ", "))
			fmt.Fprintf(cmd.OutOrStdout(), "developers (%d): %s\n", len(devs), strings.Join(devs, ", "))
			return nil
		},
	}
	flush := &cobra.Command{
		Use:   "flush",
		Short: "write configured blacklist entries to redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.core.FlushBlacklist(a.ctx)
		},
	}
	cmd.AddCommand(show, flush)
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <pair_address>",
		Short: "print a pair's record and price history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, entries, err := a.core.History(a.ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s/%s status=%s initial=%g current=%g bundle=%t fake_volume=%t\n",
				rec.PairAddress, rec.BaseToken, rec.QuoteToken, rec.Status,
				rec.InitialPrice, rec.CurrentPrice, rec.IsBundle, rec.HasFakeVolume)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tPRICE\tLIQUIDITY\tVOLUME_24H")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\n",
					time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339), e.Price, e.Liquidity, e.Volume)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "max history rows, 0 for all")
	return cmd
}

func (a *app) pairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair <chain_id> <pair_address>",
		Short: "fetch a single pair from dexscreener",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := a.core.FetchPair(a.ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, pair)
		},
	}
}

func (a *app) eventsCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "events <base_token>",
		Short: "search indexed token events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.core.SearchEvents(a.ctx, args[0], size)
			if err != nil {
				return err
			}
			for _, hit := range res.Hits.Hits {
				if err := printJSON(cmd, hit.Source); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 20, "max hits")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
