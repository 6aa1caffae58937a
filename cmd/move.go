package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"db-refactor/internal/refactor"
)

var (
	moveColumns []string
	moveFrom    string
	moveTo      string
	reverse     bool
	noEager     bool
	dryRun      bool
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move columns and their values to a 1:1 associated table",
	Example: `  db-refactor move --columns favorite_color,favorite_number --from users --to profiles
  db-refactor move --columns favorite_color --from users --to profiles --reverse`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resolver, err := GetResolver()
		if err != nil {
			return err
		}
		config := GetMoverConfig()
		if noEager {
			config.EagerLoad = false
		}

		// Reverse moves the columns back from --to onto --from.
		from, to := moveFrom, moveTo
		if reverse {
			from, to = to, from
		}

		mover := refactor.NewMover(Store, resolver, Logger, config)
		plan, err := mover.Plan(ctx, moveColumns, from, to)
		if err != nil {
			return err
		}

		if dryRun {
			Logger.Info("[SIMULATION] Dry-Run Mode Active: No data will be written.")
			renderPlan(os.Stdout, plan)
			return nil
		}

		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(max(plan.Rows, 1)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("%s -> %s: ", plan.From, plan.To)
		})

		config.OnProgress = func() { bar.Incr() }
		mover = refactor.NewMover(Store, resolver, Logger, config)

		var result *refactor.Result
		if reverse {
			result, err = mover.Reverse(ctx, moveColumns, moveFrom, moveTo)
		} else {
			result, err = mover.MoveColumn(ctx, moveColumns, moveFrom, moveTo)
		}
		uiprogress.Stop()
		if err != nil {
			return err
		}

		fmt.Println()
		renderResult(os.Stdout, result)
		Logger.Info("move finished", zap.Duration("elapsed", time.Since(start)))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(moveCmd)

	// CLI Flags
	moveCmd.Flags().StringSliceVarP(&moveColumns, "columns", "c", nil, "Columns to move (comma-separated)")
	moveCmd.Flags().StringVar(&moveFrom, "from", "", "Table the columns are moved from")
	moveCmd.Flags().StringVar(&moveTo, "to", "", "1:1 associated table the columns are moved to")
	moveCmd.Flags().BoolVar(&reverse, "reverse", false, "Move the columns back from --to onto --from")
	moveCmd.Flags().Int("page-size", 0, "Source rows held in memory at a time (overrides config)")
	moveCmd.Flags().BoolVar(&noEager, "no-eager", false, "Load each associated row with its own query")
	moveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check the move and print the plan without writing to DB")

	moveCmd.MarkFlagRequired("columns")
	moveCmd.MarkFlagRequired("from")
	moveCmd.MarkFlagRequired("to")

	viper.BindPFlag("settings.page_size", moveCmd.Flags().Lookup("page-size"))
}
