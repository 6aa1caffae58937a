package refactor

import (
	"context"
	"iter"

	"github.com/pkg/errors"

	"db-refactor/internal/schema"
)

// PagingLimit is how many rows are fetched at a time when iterating an entire table.
const PagingLimit = 50

// WalkOptions configures a table walk.
type WalkOptions struct {
	// OrderBy is the primary key column the walk is ordered and resumed on.
	OrderBy string
	// PageSize defaults to PagingLimit.
	PageSize int
	// Include eager-loads this association for every row of a page.
	Include *schema.Association
}

// Walk yields every row of table in primary key order, one page in memory
// at a time. Each page after the first asks for keys greater than the last
// key of the previous page; the walk ends on the first empty page.
//
// A fetch error is yielded once with a nil row and ends the sequence.
func Walk(ctx context.Context, rows RowStore, table string, opts WalkOptions) iter.Seq2[*schema.Row, error] {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = PagingLimit
	}

	return func(yield func(*schema.Row, error) bool) {
		page := schema.PageRequest{
			OrderBy: opts.OrderBy,
			Limit:   pageSize,
			Include: opts.Include,
		}

		for {
			batch, err := rows.FetchPage(ctx, table, page)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}

			for _, row := range batch {
				if !yield(row, nil) {
					return
				}
			}

			last := batch[len(batch)-1]
			lastID, ok := last.Get(opts.OrderBy)
			if !ok || lastID == nil {
				yield(nil, errors.Errorf("row of %s has no value for order column %q", table, opts.OrderBy))
				return
			}
			page.After = lastID
			page.HasAfter = true
		}
	}
}
