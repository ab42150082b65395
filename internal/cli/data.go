package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"plumsim/internal/store"
)

func newDataCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage cached historical data",
	}
	cmd.AddCommand(newDataImportCmd(app))
	cmd.AddCommand(newDataStatusCmd(app))
	return cmd
}

func newDataImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import TICKER...",
		Short: "Import CSV files for the given tickers into the bar cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("bar cache is not available")
			}
			green := color.New(color.FgGreen)
			for _, ticker := range args {
				ticker = strings.ToUpper(ticker)
				series, err := app.Loader.Daily(cmd.Context(), ticker)
				if err != nil {
					return fmt.Errorf("importing %s: %w", ticker, err)
				}
				green.Printf("%-12s %d daily bars\n", ticker, len(series.Bars))

				intra, err := app.Loader.Intraday(cmd.Context(), ticker)
				if err != nil {
					return fmt.Errorf("importing %s intraday: %w", ticker, err)
				}
				if intra != nil {
					green.Printf("%-12s %d intraday days\n", ticker, intra.Days())
				}
			}
			return nil
		},
	}
}

func newDataStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status TICKER...",
		Short: "Show cache freshness for the given tickers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("bar cache is not available")
			}
			for _, ticker := range args {
				ticker = strings.ToUpper(ticker)
				latest, err := app.Store.GetFreshness(cmd.Context(), ticker, store.PeriodDaily)
				if err != nil {
					return err
				}
				if latest.IsZero() {
					fmt.Printf("%-12s not cached\n", ticker)
					continue
				}
				age := time.Since(latest)
				fmt.Printf("%-12s latest bar %s (%.0f days old)\n",
					ticker, latest.Format("2006-01-02"), age.Hours()/24)
			}
			return nil
		},
	}
}
