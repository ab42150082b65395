package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"plumsim/internal/engine"
	"plumsim/internal/portfolio"
	"plumsim/internal/sim"
	"plumsim/internal/strategy"
	"plumsim/pkg/utils"
)

func newSimulateCmd(app *App) *cobra.Command {
	var (
		tickers   []string
		workers   int
		matchFlag string
		showFills bool
	)

	cmd := &cobra.Command{
		Use:     "simulate STRATEGY",
		Aliases: []string{"sim", "run"},
		Short:   "Run a strategy over one or more tickers",
		Long: `Simulate loads the named strategy from the descriptor file, runs it
against the historical series of each ticker and prints the consolidated
trades and portfolio summary.`,
		Example: `  plumsim simulate momentum --ticker RELIANCE --ticker TCS
  plumsim simulate momentum -t INFY --match fifo --fills`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tickers) == 0 {
				return fmt.Errorf("at least one --ticker is required")
			}

			file, _ := cmd.Flags().GetString("strategy-file")
			strat, err := strategy.Load(file, args[0], app.Logger)
			if err != nil {
				return fmt.Errorf("loading strategy: %w", err)
			}
			printWarnings(strat)

			if workers <= 0 {
				workers = app.Config.Sim.WorkerCount
			}
			if matchFlag == "" {
				matchFlag = app.Config.Sim.MatchMode
			}
			mode := engine.MatchLIFO
			if strings.EqualFold(matchFlag, "fifo") {
				mode = engine.MatchFIFO
			}

			simulator := sim.New(app.Loader, app.Logger, workers)
			simulator.SetMatchMode(mode)

			out, err := simulator.Run(cmd.Context(), strat, tickers)
			if err != nil {
				return err
			}

			printResults(out, showFills)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tickers, "ticker", "t", nil, "ticker symbol (repeatable)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of parallel workers (default from config)")
	cmd.Flags().StringVar(&matchFlag, "match", "", "fill matching mode: lifo or fifo")
	cmd.Flags().BoolVar(&showFills, "fills", false, "print individual fills")

	return cmd
}

func printWarnings(strat *strategy.Strategy) {
	yellow := color.New(color.FgYellow)
	for _, w := range strat.Warnings {
		yellow.Printf("warning: %s\n", w)
	}
}

func printResults(out *sim.Output, showFills bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, res := range out.Results {
		cyan.Printf("\n%s\n", res.Ticker)
		if res.Err != nil {
			red.Printf("  error: %v\n", res.Err)
			continue
		}
		if showFills {
			for _, f := range res.Result.Fills {
				fmt.Printf("  %s  %-4s %10s x %s\n",
					f.Date.Format("2006-01-02"), f.Side,
					utils.FormatPrice(f.Price), utils.FormatQuantity(f.Quantity))
			}
		}
		for _, t := range res.Result.Trades {
			c := green
			if t.Profit < 0 {
				c = red
			}
			c.Printf("  %s -> %s  %8s -> %8s  qty %s  %s\n",
				t.OpenDate.Format("2006-01-02"), t.CloseDate.Format("2006-01-02"),
				utils.FormatPrice(t.EntryPrice), utils.FormatPrice(t.ExitPrice),
				utils.FormatQuantity(t.Quantity), utils.FormatPercent(t.Profit))
		}
	}

	printSummary(out.Summary)
}

func printSummary(s *portfolio.Summary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	bold.Printf("\n%s\n", strings.Repeat("-", 48))
	bold.Printf("Trades: %d  Wins: %d  Losses: %d  Win rate: %.1f%%\n",
		len(s.Trades), s.Wins, s.Losses, s.WinRate()*100)

	c := green
	if s.TotalProfit < 0 {
		c = red
	}
	c.Printf("Total P&L: %+.2f\n", s.TotalProfit)

	if len(s.Trades) > 0 {
		byTicker := make(map[string]float64)
		for _, t := range s.Trades {
			byTicker[t.Ticker] += t.DollarProfit
		}
		names := make([]string, 0, len(byTicker))
		for n := range byTicker {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("  %-12s %+.2f\n", n, byTicker[n])
		}
	}
}
