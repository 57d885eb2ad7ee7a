// Package schema compares the columns a digest store expects with the ones
// its database reports.
package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type Column struct {
	Type     string
	Nullable bool
}

// Mismatch is a column whose type or nullability differs.
type Mismatch struct {
	Column string
	Want   Column
	Got    Column
}

// Error lists every difference found in one table.
type Error struct {
	Table      string
	Missing    []string
	Mismatched []Mismatch
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "table %s schema validation failed", e.Table)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "; missing columns: %s", strings.Join(e.Missing, ", "))
	}
	for _, m := range e.Mismatched {
		fmt.Fprintf(&b, "; %s: expected %s (nullable=%v), got %s (nullable=%v)",
			m.Column, m.Want.Type, m.Want.Nullable, m.Got.Type, m.Got.Nullable)
	}
	return b.String()
}

// Compare returns an *Error when got lacks a column of want or disagrees on
// one. Extra columns in got are allowed. Types compare case-insensitively.
func Compare(table string, want, got map[string]Column) error {
	e := &Error{Table: table}

	for _, name := range slices.Sorted(maps.Keys(want)) {
		w := want[name]
		g, ok := got[name]
		if !ok {
			e.Missing = append(e.Missing, name)
			continue
		}
		if !strings.EqualFold(g.Type, w.Type) || g.Nullable != w.Nullable {
			e.Mismatched = append(e.Mismatched, Mismatch{Column: name, Want: w, Got: g})
		}
	}

	if len(e.Missing) == 0 && len(e.Mismatched) == 0 {
		return nil
	}
	return e
}
