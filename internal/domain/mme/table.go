package mme

import (
	"fmt"
	"math"
	"strings"
)

// Route is an administration route. Routes are informational and never
// affect a calculation.
type Route string

const (
	RouteOral        Route = "oral"
	RouteIntravenous Route = "intravenous"
	RouteTransdermal Route = "transdermal"
	RouteSublingual  Route = "sublingual"
	RouteBuccal      Route = "buccal"
)

// Entry is one opioid in the conversion table
type Entry struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Factor float64 `json:"factor" yaml:"factor"`
	Unit   string  `json:"unit" yaml:"unit"`
	Routes []Route `json:"routes,omitempty" yaml:"routes,omitempty"`
}

func (e Entry) clone() Entry {
	if e.Routes != nil {
		e.Routes = append([]Route(nil), e.Routes...)
	}
	return e
}

// Table maps opioid identifiers to MME conversion factors.
// A Table has no mutating methods and is safe for concurrent use.
type Table struct {
	entries []Entry
	index   map[string]int
}

// builtinEntries are the clinically sourced factors. Identifiers and factors
// must not change.
func builtinEntries() []Entry {
	return []Entry{
		{ID: "morphine", Name: "Morphine", Factor: 1.0, Unit: "mg", Routes: []Route{RouteOral, RouteIntravenous}},
		{ID: "oxycodone", Name: "Oxycodone", Factor: 1.5, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "hydrocodone", Name: "Hydrocodone", Factor: 1.0, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "codeine", Name: "Codeine", Factor: 0.15, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "tramadol", Name: "Tramadol", Factor: 0.1, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "fentanyl_patch", Name: "Fentanyl (transdermal patch)", Factor: 2.4, Unit: "mcg/hr", Routes: []Route{RouteTransdermal}},
		{ID: "oxymorphone", Name: "Oxymorphone", Factor: 3.0, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "hydromorphone", Name: "Hydromorphone", Factor: 4.0, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "methadone_1_20", Name: "Methadone (1-20 mg/day)", Factor: 4.0, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "methadone_21_40", Name: "Methadone (21-40 mg/day)", Factor: 8.0, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "methadone_41_60", Name: "Methadone (41-60 mg/day)", Factor: 10.0, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "methadone_61_plus", Name: "Methadone (61+ mg/day)", Factor: 12.0, Unit: "mg", Routes: []Route{RouteOral}},
		{ID: "buprenorphine", Name: "Buprenorphine", Factor: 30.0, Unit: "mg", Routes: []Route{RouteSublingual, RouteBuccal}},
		{ID: "tapentadol", Name: "Tapentadol", Factor: 0.4, Unit: "mg", Routes: []Route{RouteOral}},
	}
}

var defaultTable = newTable(builtinEntries())

// DefaultTable returns the process-wide built-in conversion table
func DefaultTable() *Table { return defaultTable }

// newTable builds a table without validating factors
func newTable(entries []Entry) *Table {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		t.index[e.ID] = len(t.entries)
		t.entries = append(t.entries, e.clone())
	}
	return t
}

// Lookup returns the entry for id
func (t *Table) Lookup(id string) (Entry, bool) {
	i, ok := t.index[id]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i].clone(), true
}

// Factor returns the conversion factor for id
func (t *Table) Factor(id string) (float64, bool) {
	i, ok := t.index[id]
	if !ok {
		return 0, false
	}
	return t.entries[i].Factor, true
}

// Contains reports whether id is in the table
func (t *Table) Contains(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Len returns the number of opioids in the table
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of all entries in table order
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.clone()
	}
	return out
}

// Extend returns a new table holding t's entries followed by extra.
// Built-in identifiers cannot be redefined and every factor must be positive.
func (t *Table) Extend(extra []Entry) (*Table, error) {
	seen := make(map[string]bool, len(extra))
	for i, e := range extra {
		id := strings.TrimSpace(e.ID)
		switch {
		case id == "":
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidTable, i)
		case id != e.ID:
			return nil, fmt.Errorf("%w: id %q has surrounding whitespace", ErrInvalidTable, e.ID)
		case t.Contains(id):
			return nil, fmt.Errorf("%w: %q is already defined", ErrInvalidTable, id)
		case seen[id]:
			return nil, fmt.Errorf("%w: %q is listed twice", ErrInvalidTable, id)
		case math.IsNaN(e.Factor) || math.IsInf(e.Factor, 0) || e.Factor <= 0:
			return nil, fmt.Errorf("%w: %q factor must be positive, got %v", ErrInvalidTable, id, e.Factor)
		}
		seen[id] = true
	}

	merged := make([]Entry, 0, len(t.entries)+len(extra))
	merged = append(merged, t.entries...)
	for _, e := range extra {
		if e.Name == "" {
			e.Name = e.ID
		}
		if e.Unit == "" {
			e.Unit = "mg"
		}
		merged = append(merged, e)
	}
	return newTable(merged), nil
}
