// Package query provides a small closed set of composable predicate
// variants and their SQL rendering.
//
// Predicates are plain values, so row-level visibility rules can be built,
// inspected, and tested without touching a database. Rendering is
// deterministic: the same predicate always produces the same SQL text and
// argument order.
package query

import (
	"fmt"
	"strings"
)

// Predicate is a condition over ticket rows. The variant set is closed:
// equality, JSON key match, conjunction, and disjunction.
type Predicate interface {
	isPredicate()
}

// Eq matches rows where a column equals a value.
type Eq struct {
	Column string
	Value  interface{}
}

// JSONKey matches rows where a top-level key of a JSON column equals a
// value. Key is the literal object key; historic rows persisted the creator
// reference under the key "$.id" rather than "id", so both spellings are
// valid keys here and are matched as-is, never interpreted as a path
// expression.
type JSONKey struct {
	Column string
	Key    string
	Value  interface{}
}

// And matches rows satisfying every child predicate.
type And struct {
	Preds []Predicate
}

// Or matches rows satisfying at least one child predicate.
type Or struct {
	Preds []Predicate
}

func (Eq) isPredicate()      {}
func (JSONKey) isPredicate() {}
func (And) isPredicate()     {}
func (Or) isPredicate()      {}

// AndOf builds a conjunction, flattening nested And values and dropping nils.
func AndOf(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
		case And:
			flat = append(flat, v.Preds...)
		default:
			flat = append(flat, p)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return And{Preds: flat}
}

// OrOf builds a disjunction.
func OrOf(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		if p != nil {
			flat = append(flat, p)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Or{Preds: flat}
}

// Dialect selects placeholder style and JSON access syntax.
type Dialect int

const (
	// Postgres renders $n placeholders and jsonb ->> key access.
	Postgres Dialect = iota
	// SQLite renders ? placeholders and json_extract with a quoted key,
	// used by the in-memory test stores.
	SQLite
)

// Render produces a WHERE-clause fragment and its arguments.
func Render(p Predicate, d Dialect) (string, []interface{}, error) {
	r := &renderer{dialect: d}
	sql, err := r.render(p)
	if err != nil {
		return "", nil, err
	}
	return sql, r.args, nil
}

type renderer struct {
	dialect Dialect
	args    []interface{}
}

func (r *renderer) placeholder(v interface{}) string {
	r.args = append(r.args, v)
	if r.dialect == Postgres {
		return fmt.Sprintf("$%d", len(r.args))
	}
	return "?"
}

func (r *renderer) render(p Predicate) (string, error) {
	switch v := p.(type) {
	case Eq:
		if v.Column == "" {
			return "", fmt.Errorf("query: Eq with empty column")
		}
		return fmt.Sprintf("%s = %s", v.Column, r.placeholder(v.Value)), nil

	case JSONKey:
		if v.Column == "" || v.Key == "" {
			return "", fmt.Errorf("query: JSONKey with empty column or key")
		}
		if r.dialect == Postgres {
			// The explicit jsonb cast keeps ->> valid whatever the column's
			// declared type; legacy schemas stored the creator as text. Key
			// is passed as a parameter, so "$.id" stays a literal key.
			return fmt.Sprintf("(%s::jsonb ->> %s) = %s",
				v.Column, r.placeholder(v.Key), r.placeholder(v.Value)), nil
		}
		// SQLite path syntax: quoting the key makes "$.id" a literal
		// object key rather than a path.
		path := `$."` + strings.ReplaceAll(v.Key, `"`, `""`) + `"`
		return fmt.Sprintf("json_extract(%s, %s) = %s",
			v.Column, r.placeholder(path), r.placeholder(v.Value)), nil

	case And:
		return r.renderJoin(v.Preds, " AND ")

	case Or:
		return r.renderJoin(v.Preds, " OR ")

	case nil:
		return "", fmt.Errorf("query: nil predicate")

	default:
		return "", fmt.Errorf("query: unknown predicate variant %T", p)
	}
}

func (r *renderer) renderJoin(preds []Predicate, sep string) (string, error) {
	if len(preds) == 0 {
		// Empty conjunction/disjunction matches everything; used when a
		// scope imposes no restriction.
		return "1=1", nil
	}

	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		sql, err := r.render(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}
