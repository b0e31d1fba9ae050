// Package mapping implements the declarative column-mapping engine shared by
// the snapshot loader and the geographic reference loaders. A mapping table
// binds each source column to a target field and one of a small fixed set of
// scalar coercions; the binding is plain data, inspectable and testable
// without running any loader.
package mapping

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
)

// Coercion selects how a raw column value is converted before it reaches a
// target field. The set is closed: the transformer resolves it with a pure
// switch, never a runtime function lookup.
type Coercion int

const (
	// Text passes the value through; blank becomes nil.
	Text Coercion = iota
	// Integer takes the floor of the parsed float; blank or unparsable
	// becomes nil.
	Integer
	// Float parses the value; blank or unparsable becomes nil.
	Float
	// Skip drops the column entirely (ID and geometry columns the system
	// does not persist).
	Skip
)

// Rule binds one source column to a target field and a coercion.
type Rule struct {
	Field  string
	Coerce Coercion
}

// Table maps source column names to rules. Columns mapped with Skip are
// dropped from the output record.
type Table map[string]Rule

// Record is one transformed row: target field name to coerced scalar.
// Values are string, int64, float64, or nil.
type Record map[string]any

// Error reports a raw record key that has no entry in the mapping table.
// It signals a configuration defect: the declared mapping has drifted from
// the actual source schema, so the whole file is rejected.
type Error struct {
	Column string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mapping: source column %q has no mapping entry", e.Column)
}

// Transformer applies mapping tables to raw records. The logger receives a
// warning event for every non-blank value a numeric coercion rejects.
type Transformer struct {
	log *slog.Logger
}

// New creates a Transformer emitting events to logger.
func New(logger *slog.Logger) *Transformer {
	return &Transformer{log: logger}
}

// Apply transforms one raw record through table. The output contains only
// mapped, non-skipped fields. A raw key absent from table yields *Error.
func (t *Transformer) Apply(raw map[string]string, table Table) (Record, error) {
	out := make(Record, len(table))
	for column, value := range raw {
		rule, ok := table[column]
		if !ok {
			return nil, &Error{Column: column}
		}
		if rule.Coerce == Skip {
			continue
		}
		out[rule.Field] = t.coerce(column, value, rule.Coerce)
	}
	return out, nil
}

func (t *Transformer) coerce(column, value string, c Coercion) any {
	if value == "" {
		return nil
	}
	switch c {
	case Text:
		return value
	case Integer:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			t.warnUnparsable(column, value)
			return nil
		}
		return int64(math.Floor(f))
	case Float:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			t.warnUnparsable(column, value)
			return nil
		}
		return f
	}
	return nil
}

func (t *Transformer) warnUnparsable(column, value string) {
	t.log.Warn("mapping: unparsable numeric value",
		slog.String("column", column),
		slog.String("value", value))
}
