package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

func optional(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

func renderColumns(w io.Writer, tableName string, cols []*schema.ColumnDescriptor) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(tableName)
	tw.AppendHeader(table.Row{"COLUMN", "TYPE", "SQL TYPE", "LIMIT", "PRECISION", "SCALE", "NULL", "DEFAULT", "PK"})
	for _, c := range cols {
		def := ""
		if c.Default != nil {
			def = *c.Default
		}
		tw.AppendRow(table.Row{c.Name, c.DataType, c.SQLType, optional(c.Limit), optional(c.Precision),
			optional(c.Scale), c.Nullable, def, c.PrimaryKey})
	}
	tw.Render()
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func renderPlan(w io.Writer, plan *refactor.Plan) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("move %s -> %s (dry run)", plan.From, plan.To))
	tw.AppendHeader(table.Row{"CATEGORY", "VALUE"})
	tw.AppendRow(table.Row{"ASSOCIATION", fmt.Sprintf("%s %s (%s.%s -> %s)",
		plan.Association.Kind, plan.Association.Name, ownerSide(plan), plan.Association.ForeignKey, plan.Association.OwnerKey)})
	tw.AppendRow(table.Row{"COLUMNS", strings.Join(descriptorNames(plan.Columns), ", ")})
	if len(plan.Resumed) > 0 {
		tw.AppendRow(table.Row{"ALREADY ON TARGET", strings.Join(plan.Resumed, ", ")})
	}
	tw.AppendRow(table.Row{"SOURCE ROWS", plan.Rows})
	tw.Render()
}

func ownerSide(plan *refactor.Plan) string {
	if plan.Association.Kind == schema.BelongsTo {
		return plan.From
	}
	return plan.To
}

func renderResult(w io.Writer, r *refactor.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"FROM", "TO", "COLUMNS", "ROWS", "CREATED", "UPDATED"})
	tw.AppendRow(table.Row{r.From, r.To, strings.Join(r.Columns, ", "), r.Rows, r.Created, r.Updated})
	tw.Render()
}

func descriptorNames(cols []*schema.ColumnDescriptor) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
