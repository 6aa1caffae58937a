package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

var (
	describeTable   string
	describeColumn  string
	describeFormat  string
	describeCompare string
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show column descriptors as the refactoring tools see them",
	Example: `  db-refactor describe --table users
  db-refactor describe --table users --column favorite_color --compare profiles`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, err := Store.DescribeTable(ctx, describeTable)
		if err != nil {
			return err
		}

		cols := t.Columns
		if describeColumn != "" {
			col, err := Store.DescribeColumn(ctx, describeTable, describeColumn)
			if err != nil {
				return err
			}
			cols = []*schema.ColumnDescriptor{col}

			if describeCompare != "" {
				other, err := Store.DescribeColumn(ctx, describeCompare, describeColumn)
				if err != nil {
					return err
				}
				if col.Equal(other) {
					fmt.Printf("%s.%s and %s.%s have the same definition\n", t.Name, col.Name, describeCompare, other.Name)
				} else {
					fmt.Printf("%s.%s -> %s.%s: %s\n", t.Name, col.Name, describeCompare, other.Name,
						refactor.DescribeDifference(col, other))
				}
			}
		}

		switch describeFormat {
		case "yaml":
			return renderYAML(os.Stdout, map[string]any{
				"table":       t.Name,
				"primary_key": t.PrimaryKey,
				"columns":     cols,
			})
		case "table", "":
			renderColumns(os.Stdout, t.Name, cols)
			return nil
		default:
			return fmt.Errorf("unknown format %q (table or yaml)", describeFormat)
		}
	},
}

func init() {
	RootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringVarP(&describeTable, "table", "t", "", "Table to describe")
	describeCmd.Flags().StringVar(&describeColumn, "column", "", "Only this column")
	describeCmd.Flags().StringVar(&describeFormat, "format", "table", "Output format: table or yaml")
	describeCmd.Flags().StringVar(&describeCompare, "compare", "", "Compare --column with the same column of another table")
	describeCmd.MarkFlagRequired("table")
}
