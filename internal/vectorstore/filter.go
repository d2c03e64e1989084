package vectorstore

import "fmt"

// Filter restricts a search to points whose metadata satisfies it.
type Filter interface {
	// Matches evaluates the filter against point metadata.
	Matches(meta map[string]any) bool
	fmt.Stringer
}

// Eq matches points whose Field equals Value.
type Eq struct {
	Field string
	Value any
}

// In matches points whose Field equals any of Values.
type In struct {
	Field  string
	Values []any
}

// And matches points satisfying every condition.
type And []Filter

func (f Eq) Matches(meta map[string]any) bool {
	v, ok := meta[f.Field]
	return ok && sameValue(v, f.Value)
}

func (f Eq) String() string { return fmt.Sprintf("%s == %v", f.Field, f.Value) }

func (f In) Matches(meta map[string]any) bool {
	v, ok := meta[f.Field]
	if !ok {
		return false
	}
	for _, want := range f.Values {
		if sameValue(v, want) {
			return true
		}
	}
	return false
}

func (f In) String() string { return fmt.Sprintf("%s in %v", f.Field, f.Values) }

func (f And) Matches(meta map[string]any) bool {
	for _, c := range f {
		if !c.Matches(meta) {
			return false
		}
	}
	return true
}

func (f And) String() string {
	s := "("
	for i, c := range f {
		if i > 0 {
			s += " AND "
		}
		s += c.String()
	}
	return s + ")"
}

// Conjoin combines conditions with AND. Nil conditions are dropped; zero
// conditions give nil and a single condition is returned unwrapped.
func Conjoin(conds ...Filter) Filter {
	kept := make(And, 0, len(conds))
	for _, c := range conds {
		if c != nil {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return kept
	}
}

// sameValue compares metadata values, treating all integer types and
// integral floats as the same number.
func sameValue(a, b any) bool {
	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if aok && bok {
		return ai == bi
	}
	return a == b
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
