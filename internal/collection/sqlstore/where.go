/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sqlstore

import (
	"fmt"
	"strings"

	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/models"
	"github.com/friendsincode/dynbias/internal/query"
)

const likeEscape = "!"

// predicate is a parameterised SQL predicate.
type predicate struct {
	sql  string
	args []any
}

// whereBuilder translates plan nodes for one SQL dialect.
type whereBuilder struct {
	dialect string
}

func (w whereBuilder) build(node query.Node) (predicate, error) {
	switch n := node.(type) {
	case nil:
		return predicate{sql: "1 = 1"}, nil
	case query.Nothing:
		return predicate{sql: "1 = 0"}, nil
	case query.NumberFilter:
		if !n.Field.IsNumeric() {
			return predicate{}, fmt.Errorf("numeric comparison on text field %d", n.Field)
		}
		col, err := column(n.Field)
		if err != nil {
			return predicate{}, err
		}
		return predicate{sql: col + " " + n.Compare.String() + " ?", args: []any{n.Value}}, nil
	case query.TextFilter:
		if n.Field == meta.AnyText {
			or := make(query.Or, 0, len(meta.TextSearchFields))
			for _, f := range meta.TextSearchFields {
				or = append(or, query.TextFilter{Field: f, Value: n.Value, Exact: n.Exact})
			}
			return w.build(or)
		}
		return w.text(n)
	case query.And:
		return w.group(" AND ", "1 = 1", n)
	case query.Or:
		return w.group(" OR ", "1 = 0", n)
	}
	return predicate{}, fmt.Errorf("unsupported plan node %T", node)
}

// text compares against the folded columns. Numeric fields are cast to their
// base-10 text, which has no case to fold.
func (w whereBuilder) text(n query.TextFilter) (predicate, error) {
	col, ok := models.FoldColumn(n.Field)
	if n.Field.IsNumeric() {
		num, err := column(n.Field)
		if err != nil {
			return predicate{}, err
		}
		col, ok = "CAST("+num+" AS "+w.textType()+")", true
	}
	if !ok {
		return predicate{}, fmt.Errorf("field %d has no folded column", n.Field)
	}
	col = w.binary(col)

	want := strings.ToLower(n.Value)
	if n.Exact {
		return predicate{sql: col + " = ?", args: []any{want}}, nil
	}
	return predicate{
		sql:  col + " LIKE ? ESCAPE '" + likeEscape + "'",
		args: []any{"%" + escapeLike(want) + "%"},
	}, nil
}

// binary makes the comparison on col byte-exact. MySQL collations would
// otherwise also fold accents.
func (w whereBuilder) binary(col string) string {
	if w.dialect == "mysql" {
		return "CAST(" + col + " AS BINARY)"
	}
	return col
}

func (w whereBuilder) group(sep, empty string, nodes []query.Node) (predicate, error) {
	if len(nodes) == 0 {
		return predicate{sql: empty}, nil
	}
	parts := make([]string, 0, len(nodes))
	var args []any
	for _, c := range nodes {
		sub, err := w.build(c)
		if err != nil {
			return predicate{}, err
		}
		parts = append(parts, "("+sub.sql+")")
		args = append(args, sub.args...)
	}
	return predicate{sql: strings.Join(parts, sep), args: args}, nil
}

func (w whereBuilder) textType() string {
	if w.dialect == "mysql" {
		return "CHAR"
	}
	return "TEXT"
}

func column(f meta.Field) (string, error) {
	col, ok := models.TrackColumn(f)
	if !ok {
		return "", fmt.Errorf("field %d has no column", f)
	}
	return col, nil
}

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
