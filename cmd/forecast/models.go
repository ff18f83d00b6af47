package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/registry"
)

var (
	modelsSport  string
	modelsMarket string
	modelsState  string
)

func init() {
	modelsCmd.Flags().StringVar(&modelsSport, "sport", "", "Sport to list models for")
	modelsCmd.Flags().StringVar(&modelsMarket, "market", string(models.MarketWinner), "Market (WINNER, OVER_UNDER, SPREAD)")
	modelsCmd.Flags().StringVar(&modelsState, "state", string(models.StatePreGame), "Temporal state (pre_game, live)")
	_ = modelsCmd.MarkFlagRequired("sport")
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model artifacts serving a sport, market and state",
	RunE: func(cmd *cobra.Command, args []string) error {
		sport := models.Sport(strings.ToLower(modelsSport))
		market := models.Market(strings.ToUpper(modelsMarket))
		state := models.TemporalState(strings.ToLower(modelsState))
		if !market.Valid() {
			return fmt.Errorf("unknown market %q", modelsMarket)
		}
		if !state.Valid() {
			return fmt.Errorf("unknown temporal state %q", modelsState)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := buildApp(ctx, cfg, appLog)
		if err != nil {
			return err
		}
		defer a.close()

		families, err := a.predictor.Families(ctx, sport, market, state)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FAMILY\tVERSION\tSCHEMA\tFEATURES\tPRIOR WEIGHT\tSTATUS")
		for _, family := range families {
			key := registry.Key{Sport: sport, Market: market, State: state, Family: family}
			artifact, err := a.registry.Get(ctx, key)
			if err != nil {
				fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%v\n", family, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3f\tok\n", family, artifact.Version(), artifact.SchemaVersion(),
				len(artifact.FeatureOrder()), artifact.PriorWeight())
		}
		return w.Flush()
	},
}
