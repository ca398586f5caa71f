package query

import (
	"fmt"
	"strings"

	"github.com/teemow/workspacekit/internal/apierror"
)

// Kind is the shape of a criterion.
type Kind int

const (
	KindEquals Kind = iota + 1
	KindContains
	KindDateRange
	KindFlag
	KindSizeBound
)

func (k Kind) String() string {
	switch k {
	case KindEquals:
		return "equals"
	case KindContains:
		return "contains"
	case KindDateRange:
		return "date_range"
	case KindFlag:
		return "flag"
	case KindSizeBound:
		return "size_bound"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FieldSize is the field name used by size bounds.
const FieldSize = "size"

// Criterion is one declarative predicate. It carries no provider syntax.
type Criterion struct {
	Kind  Kind
	Field string

	// Value is the operand of Equals and Contains.
	Value string
	// Exact makes Contains match the whole phrase.
	Exact bool
	// On is the state requested by a Flag.
	On bool
	// Range is the window of a DateRange.
	Range Range
	// Min and Max bound a size in bytes; zero means unbounded.
	Min, Max int64
}

// Equals matches field == value.
func Equals(field, value string) Criterion {
	return Criterion{Kind: KindEquals, Field: field, Value: value}
}

// Contains matches text in field, as a phrase when exact is set.
func Contains(field, text string, exact bool) Criterion {
	return Criterion{Kind: KindContains, Field: field, Value: text, Exact: exact}
}

// Between matches field inside r.
func Between(field string, r Range) Criterion {
	return Criterion{Kind: KindDateRange, Field: field, Range: r}
}

// Flag requires the boolean property name to be on.
func Flag(name string, on bool) Criterion {
	return Criterion{Kind: KindFlag, Field: name, On: on}
}

// Size bounds the size in bytes: strictly larger than min and strictly smaller than max.
func Size(min, max int64) Criterion {
	return Criterion{Kind: KindSizeBound, Field: FieldSize, Min: min, Max: max}
}

// Validate reports malformed criteria with an InvalidQuery error.
func (c Criterion) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return apierror.Invalid("criterion field is empty")
	}
	switch c.Kind {
	case KindEquals, KindContains:
		if strings.TrimSpace(c.Value) == "" {
			return apierror.Invalid("%s on %q needs a non-empty value", c.Kind, c.Field)
		}
	case KindDateRange:
		return c.Range.Validate()
	case KindSizeBound:
		if c.Min < 0 || c.Max < 0 {
			return apierror.Invalid("size bounds must be positive")
		}
		if c.Min == 0 && c.Max == 0 {
			return apierror.Invalid("size bound needs a minimum or a maximum")
		}
		if c.Max > 0 && c.Min >= c.Max {
			return apierror.Invalid("size minimum %d must be below maximum %d", c.Min, c.Max)
		}
	case KindFlag:
	default:
		return apierror.Invalid("unknown criterion kind %d", int(c.Kind))
	}
	return nil
}

// Limit validates a result limit against the provider maximum.
func Limit(n, max int) error {
	if n < 1 || n > max {
		return apierror.Invalid("limit must be between 1 and %d, got %d", max, n)
	}
	return nil
}
