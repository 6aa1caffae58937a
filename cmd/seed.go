package cmd

import (
	"fmt"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-refactor/internal/seed"
)

var (
	seedTables []string
	count      int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill tables with random rows to rehearse a move",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Fetch count from Viper (Flag > Config > Default)
		targetCount := viper.GetInt("settings.default_count")
		if count > 0 {
			targetCount = count
		}

		uiprogress.Start()
		bar := uiprogress.AddBar(max(targetCount*len(seedTables), 1)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Seeding: "
		})

		var results []*seed.Result
		for _, table := range seedTables {
			r, err := seed.Seed(ctx, Store, table, targetCount, Logger, func() { bar.Incr() })
			if err != nil {
				uiprogress.Stop()
				return err
			}
			results = append(results, r)
		}
		uiprogress.Stop()

		fmt.Println("\nSummary Report:")
		for i, r := range results {
			icon := "✓"
			if r.Failed > 0 {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %-20s : %d rows (Target: %d, Rejected: %d)\n",
				icon, i+1, len(results), r.Table, r.Inserted, targetCount, r.Failed)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringSliceVarP(&seedTables, "tables", "t", nil, "Tables to seed, parents first (comma-separated)")
	seedCmd.Flags().IntVar(&count, "count", 0, "Number of records to generate per table (overrides config)")
	seedCmd.MarkFlagRequired("tables")

	viper.SetDefault("settings.default_count", 100)
}
