package refactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"db-refactor/internal/schema"
)

// Config tunes a Mover.
type Config struct {
	// PageSize is the number of source rows held in memory; defaults to PagingLimit.
	PageSize int
	// EagerLoad fetches the associated rows of each page in one query.
	EagerLoad bool
	// OnProgress is called after each source row is copied.
	OnProgress func()
}

// Plan is the checked outline of a move, produced before any change is made.
type Plan struct {
	From        string
	To          string
	PrimaryKey  string
	Columns     []*schema.ColumnDescriptor
	Association *schema.Association
	// Resumed lists columns already present on To with an identical definition.
	Resumed []string
	Rows    int
}

// Result summarises a completed move.
type Result struct {
	From    string
	To      string
	Columns []string
	Rows    int
	Created int
	Updated int
	Resumed []string
}

// Mover moves columns, with their values, between 1:1 associated tables.
type Mover struct {
	store    Storage
	resolver *Resolver
	logger   *zap.Logger
	config   Config
}

// NewMover constructs a Mover. A nil resolver uses the default naming rules
// and a nil logger discards output.
func NewMover(store Storage, resolver *Resolver, logger *zap.Logger, config Config) *Mover {
	if resolver == nil {
		resolver = &Resolver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PageSize <= 0 {
		config.PageSize = PagingLimit
	}
	return &Mover{store: store, resolver: resolver, logger: logger, config: config}
}

// Plan validates a move of columns from one table to another without
// changing anything: source columns exist and are not keys, target columns
// do not conflict, and the association can be derived.
func (m *Mover) Plan(ctx context.Context, columns []string, from, to string) (*Plan, error) {
	names := uniqueColumns(columns)
	if len(names) == 0 {
		return nil, SchemaError("plan", from, "", errors.New("no columns given"))
	}
	if strings.EqualFold(from, to) {
		return nil, SchemaError("plan", from, "", errors.New("source and target table are the same"))
	}

	source, err := m.store.DescribeTable(ctx, from)
	if err != nil {
		return nil, StorageError("describe source table", from, err)
	}
	if source.PrimaryKey == "" {
		return nil, SchemaError("plan", from, "", errors.New("source table has no primary key to page on"))
	}
	target, err := m.store.DescribeTable(ctx, to)
	if err != nil {
		return nil, StorageError("describe target table", to, err)
	}

	assoc, err := m.resolver.Association(ctx, m.store, from, to)
	if err != nil {
		return nil, err
	}

	plan := &Plan{From: source.Name, To: target.Name, PrimaryKey: source.PrimaryKey, Association: assoc}
	for _, name := range names {
		col, ok := source.Column(name)
		if !ok {
			return nil, SchemaError("plan", from, name, errors.New("column does not exist"))
		}
		if col.PrimaryKey {
			return nil, SchemaError("plan", from, name, errors.New("cannot move a primary key column"))
		}
		if assoc.Kind == schema.BelongsTo && strings.EqualFold(col.Name, assoc.ForeignKey) {
			return nil, SchemaError("plan", from, name, errors.New("cannot move the association's foreign key"))
		}
		if existing, ok := target.Column(col.Name); ok {
			if !existing.Equal(col) {
				return nil, SchemaError("plan", to, col.Name,
					errors.Errorf("column already exists with a different definition (%s)", DescribeDifference(existing, col)))
			}
			plan.Resumed = append(plan.Resumed, col.Name)
		}
		plan.Columns = append(plan.Columns, col.Clone())
	}

	if plan.Rows, err = m.store.CountRows(ctx, from); err != nil {
		return nil, StorageError("count rows", from, err)
	}
	return plan, nil
}

// MoveColumn moves columns from one table to the 1:1 associated table,
// keeping every value. Target columns are created first, then all rows are
// copied inside one transaction, and only after it commits are the source
// columns dropped.
//
// A failure during the copy rolls back every row written, but target
// columns already created stay in place; running the move again reuses them.
func (m *Mover) MoveColumn(ctx context.Context, columns []string, from, to string) (*Result, error) {
	plan, err := m.Plan(ctx, columns, from, to)
	if err != nil {
		return nil, err
	}

	m.logger.Info("moving columns",
		zap.String("from", plan.From),
		zap.String("to", plan.To),
		zap.Strings("columns", columnNames(plan.Columns)),
		zap.String("association", plan.Association.Name),
		zap.Stringer("kind", plan.Association.Kind),
		zap.Int("rows", plan.Rows))

	for _, col := range plan.Columns {
		if err := MirrorColumn(ctx, m.store, plan.From, col.Name, plan.To, m.logger); err != nil {
			return nil, err
		}
	}
	m.store.RefreshSchemaCache(plan.To)

	result, err := m.copyRows(ctx, plan)
	if err != nil {
		return nil, err
	}

	for _, col := range plan.Columns {
		if err := PruneColumn(ctx, m.store, plan.From, col.Name, m.logger); err != nil {
			return result, err
		}
	}
	m.store.RefreshSchemaCache(plan.From)

	m.logger.Info("move complete",
		zap.Int("rows", result.Rows),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	return result, nil
}

// Reverse undoes MoveColumn(columns, from, to) by moving the columns back.
func (m *Mover) Reverse(ctx context.Context, columns []string, from, to string) (*Result, error) {
	return m.MoveColumn(ctx, columns, to, from)
}

func (m *Mover) copyRows(ctx context.Context, plan *Plan) (result *Result, err error) {
	tx, err := m.store.Begin(ctx)
	if err != nil {
		return nil, StorageError("begin transaction", plan.From, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	result = &Result{
		From:    plan.From,
		To:      plan.To,
		Columns: columnNames(plan.Columns),
		Resumed: plan.Resumed,
	}

	opts := WalkOptions{OrderBy: plan.PrimaryKey, PageSize: m.config.PageSize}
	if m.config.EagerLoad {
		opts.Include = plan.Association
	}

	// claimed maps each existing target key to the source key that wrote it.
	claimed := make(map[string]any)

	for row, walkErr := range Walk(ctx, tx, plan.From, opts) {
		if walkErr != nil {
			return nil, StorageError("fetch page", plan.From, walkErr)
		}

		var referenced *schema.Row
		for _, col := range plan.Columns {
			value, _ := row.Get(col.Name)
			if referenced, err = m.resolver.ResolveOrCreate(ctx, tx, row, plan.Association); err != nil {
				return nil, err
			}
			referenced.Set(col.Name, value)
		}

		if referenced.Persisted() {
			key := fmt.Sprint(referenced.ID())
			if first, dup := claimed[key]; dup {
				return nil, AssociationError("copy", plan.To,
					errors.Errorf("%s %v is associated with both %v and %v of %s",
						plan.Association.Name, referenced.ID(), first, row.ID(), plan.From))
			}
			claimed[key] = row.ID()
		}

		created := !referenced.Persisted()
		if err = tx.Save(ctx, referenced); err != nil {
			return nil, StorageError("save", plan.To, err)
		}
		result.Rows++
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		if result.Rows%m.config.PageSize == 0 {
			m.logger.Debug("copied rows", zap.Int("rows", result.Rows))
		}
		if m.config.OnProgress != nil {
			m.config.OnProgress()
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, StorageError("commit", plan.From, err)
	}
	return result, nil
}

func uniqueColumns(columns []string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToUpper(c)] {
			continue
		}
		seen[strings.ToUpper(c)] = true
		names = append(names, c)
	}
	return names
}

func columnNames(cols []*schema.ColumnDescriptor) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
