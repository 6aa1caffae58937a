package refactor

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"db-refactor/internal/schema"
)

// AssociationOverride pins the reference name and/or foreign key used
// between two tables instead of deriving them.
type AssociationOverride struct {
	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
	Name       string `mapstructure:"name"`
	ForeignKey string `mapstructure:"foreign_key"`
}

// Resolver finds the association between two tables and the associated row
// of each source row.
type Resolver struct {
	Inflector *schema.Inflector
	Overrides []AssociationOverride
}

func (r *Resolver) override(from, to string) AssociationOverride {
	for _, o := range r.Overrides {
		if strings.EqualFold(o.From, from) && strings.EqualFold(o.To, to) {
			return o
		}
	}
	return AssociationOverride{}
}

// ReferenceName is the singular name used to navigate from a row to its
// associated row in table: "preferences" -> "preference".
func (r *Resolver) ReferenceName(table string) (string, error) {
	name, err := r.Inflector.Singularize(table)
	if err != nil {
		return "", AssociationError("derive reference name", table, err)
	}
	return name, nil
}

// Association derives how rows of from reach their single row in to.
//
// The foreign key is taken from the configured override, else from a
// declared foreign key between the tables (on to: has-one, on from:
// belongs-to), else from the <singular>_id naming convention.
func (r *Resolver) Association(ctx context.Context, store SchemaStore, from, to string) (*schema.Association, error) {
	o := r.override(from, to)

	name := o.Name
	if name == "" {
		var err error
		if name, err = r.ReferenceName(to); err != nil {
			return nil, err
		}
	}

	fromTable, err := store.DescribeTable(ctx, from)
	if err != nil {
		return nil, StorageError("describe table", from, err)
	}
	toTable, err := store.DescribeTable(ctx, to)
	if err != nil {
		return nil, StorageError("describe table", to, err)
	}

	assoc := &schema.Association{Name: name, Table: toTable.Name}

	switch {
	case o.ForeignKey != "":
		if c, ok := toTable.Column(o.ForeignKey); ok {
			assoc.Kind, assoc.ForeignKey = schema.HasOne, c.Name
		} else if c, ok := fromTable.Column(o.ForeignKey); ok {
			assoc.Kind, assoc.ForeignKey = schema.BelongsTo, c.Name
		} else {
			return nil, AssociationError("resolve foreign key", to,
				errors.Errorf("configured foreign key %q exists on neither %s nor %s", o.ForeignKey, from, to))
		}
	default:
		hasOne := toTable.ForeignKeysTo(fromTable.Name)
		belongsTo := fromTable.ForeignKeysTo(toTable.Name)
		switch {
		case len(hasOne)+len(belongsTo) > 1:
			return nil, AssociationError("resolve foreign key", to,
				errors.Errorf("%d foreign keys link %s and %s, configure one", len(hasOne)+len(belongsTo), from, to))
		case len(hasOne) == 1:
			assoc.Kind, assoc.ForeignKey, assoc.OwnerKey = schema.HasOne, hasOne[0].Column, hasOne[0].RefColumn
		case len(belongsTo) == 1:
			assoc.Kind, assoc.ForeignKey, assoc.OwnerKey = schema.BelongsTo, belongsTo[0].Column, belongsTo[0].RefColumn
		default:
			if err := r.byConvention(assoc, fromTable, toTable); err != nil {
				return nil, err
			}
		}
	}

	if assoc.OwnerKey == "" {
		if assoc.Kind == schema.HasOne {
			assoc.OwnerKey = fromTable.PrimaryKey
		} else {
			assoc.OwnerKey = toTable.PrimaryKey
		}
	}
	if assoc.OwnerKey == "" {
		return nil, AssociationError("resolve owner key", to, errors.New("referenced table has no primary key"))
	}
	return assoc, nil
}

func (r *Resolver) byConvention(assoc *schema.Association, fromTable, toTable *schema.Table) error {
	if owner, err := r.Inflector.Singularize(fromTable.Name); err == nil {
		if c, ok := toTable.Column(schema.ForeignKeyName(owner)); ok {
			assoc.Kind, assoc.ForeignKey = schema.HasOne, c.Name
			return nil
		}
	}
	if c, ok := fromTable.Column(schema.ForeignKeyName(assoc.Name)); ok {
		assoc.Kind, assoc.ForeignKey = schema.BelongsTo, c.Name
		return nil
	}
	return AssociationError("resolve foreign key", toTable.Name,
		errors.Errorf("no foreign key links %s and %s", fromTable.Name, toTable.Name))
}

// ResolveOrCreate returns the row associated with source, building an
// unsaved, linked one when there is none. The result is cached on source, so
// repeated calls within a run return the same row.
func (r *Resolver) ResolveOrCreate(ctx context.Context, rows RowStore, source *schema.Row, assoc *schema.Association) (*schema.Row, error) {
	if cached, ok := source.Associated(assoc.Name); ok && cached != nil {
		return cached, nil
	}

	referenced, err := rows.LoadAssociation(ctx, source, assoc)
	if err != nil {
		return nil, StorageError("load association "+assoc.Name, assoc.Table, err)
	}
	if referenced == nil {
		referenced = rows.BuildAssociated(source, assoc)
	}
	return referenced, nil
}
