package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"plumsim/internal/strategy"
)

func newStrategyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "strategy",
		Aliases: []string{"strat"},
		Short:   "Inspect strategy descriptors",
	}
	cmd.AddCommand(newStrategyShowCmd(app))
	cmd.AddCommand(newStrategyCheckCmd(app))
	return cmd
}

func newStrategyShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show STRATEGY",
		Short: "Print the parsed rules of a strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("strategy-file")
			strat, err := strategy.Load(file, args[0], app.Logger)
			if err != nil {
				return err
			}
			printWarnings(strat)

			cyan := color.New(color.FgCyan, color.Bold)
			bold := color.New(color.Bold)

			cyan.Printf("%s\n", strat.Name)
			if names := strat.Params.Names(); len(names) > 0 {
				sort.Strings(names)
				bold.Println("\nParameters:")
				for _, n := range names {
					v, _ := strat.Params.Lookup(n)
					fmt.Printf("  %-20s %v\n", n, v)
				}
			}

			printRules := func(title string, rules []strategy.Rule) {
				if len(rules) == 0 {
					return
				}
				bold.Printf("\n%s:\n", title)
				for _, r := range rules {
					fmt.Printf("  %s\n", r.Name)
					fmt.Printf("    timeframe: %s\n", r.Timeframe)
					fmt.Printf("    condition: %s\n", r.ConditionText)
					fmt.Printf("    price:     %s\n", r.PriceText)
					if r.StopText != "" {
						fmt.Printf("    stop:      %s\n", r.StopText)
					}
					if r.Role == strategy.RoleSell {
						fmt.Printf("    quantity:  %.0f%%\n", r.Quantity*100)
					}
				}
			}
			printRules("Buy rules", strat.BuyRules)
			printRules("Sell rules", strat.SellRules)
			return nil
		},
	}
}

func newStrategyCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check STRATEGY",
		Short: "Validate a strategy without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("strategy-file")
			strat, err := strategy.Load(file, args[0], app.Logger)
			if err != nil {
				return err
			}
			printWarnings(strat)
			if len(strat.Warnings) > 0 {
				return fmt.Errorf("%d rule(s) skipped", len(strat.Warnings))
			}
			color.New(color.FgGreen).Printf("%s: %d buy rules, %d sell rules, OK\n",
				strat.Name, len(strat.BuyRules), len(strat.SellRules))
			return nil
		},
	}
}
