// Package filter narrows an in-memory entity slice by caller visibility and
// by a conjunction of criteria.
package filter

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"obra-manager/internal/access"
)

// Record is what an entity exposes to the resolver. Unknown field names return
// nil / false, which makes any criterion on them fail to match.
type Record interface {
	Values(field string) []string
	Time(field string) (time.Time, bool)
	Number(field string) (float64, bool)
	ProjectRefs() []uint
	SearchText() string
}

type DateRange struct {
	Field string
	From  *time.Time
	To    *time.Time
}

type Threshold struct {
	Field string
	Min   float64
}

// Criteria are combined with AND across dimensions and OR inside Values[field].
// The zero value imposes no constraint.
type Criteria struct {
	Values map[string][]string
	Date   *DateRange
	Min    *Threshold
	Search string

	SortBy string
	Desc   bool

	// Malformed lists query parameters that could not be parsed. A criteria
	// with malformed input matches nothing.
	Malformed []string
}

// Scope is the caller's visibility over project-bound entities.
type Scope struct {
	ViewAll  bool
	Projects []uint
}

// ScopeFor derives a Scope from the caller and the entity's "view all" permission.
func ScopeFor(p *access.Principal, viewAll string) Scope {
	s := Scope{ViewAll: access.HasPermission(p, viewAll)}
	if p != nil {
		s.Projects = p.Projects
	}
	return s
}

func (s Scope) visible(r Record) bool {
	if s.ViewAll {
		return true
	}
	for _, id := range r.ProjectRefs() {
		if slices.Contains(s.Projects, id) {
			return true
		}
	}
	return false
}

// Resolve applies visibility first, then every set criterion. The result is a
// new slice holding a subset of items in their original order unless SortBy
// is set.
func Resolve[T Record](items []T, c Criteria, s Scope) []T {
	out := make([]T, 0, len(items))
	if len(c.Malformed) > 0 {
		return out
	}

	search := strings.ToLower(strings.TrimSpace(c.Search))
	for _, it := range items {
		if !s.visible(it) {
			continue
		}
		if !c.matches(it, search) {
			continue
		}
		out = append(out, it)
	}

	if c.SortBy != "" {
		sortRecords(out, c.SortBy, c.Desc)
	}
	return out
}

func (c Criteria) matches(r Record, search string) bool {
	for field, allowed := range c.Values {
		if len(allowed) == 0 {
			continue
		}
		if !anyIn(r.Values(field), allowed) {
			return false
		}
	}

	if c.Date != nil && (c.Date.From != nil || c.Date.To != nil) {
		t, ok := r.Time(c.Date.Field)
		if !ok {
			return false
		}
		if c.Date.From != nil && t.Before(*c.Date.From) {
			return false
		}
		if c.Date.To != nil && t.After(*c.Date.To) {
			return false
		}
	}

	if c.Min != nil {
		n, ok := r.Number(c.Min.Field)
		if !ok || n < c.Min.Min {
			return false
		}
	}

	if search != "" && !strings.Contains(strings.ToLower(r.SearchText()), search) {
		return false
	}
	return true
}

func anyIn(have, allowed []string) bool {
	for _, v := range have {
		if slices.Contains(allowed, v) {
			return true
		}
	}
	return false
}

// sortRecords orders by the numeric value of field when present, then by its
// time, then by its first string value. Records missing the field go last.
func sortRecords[T Record](items []T, field string, desc bool) {
	slices.SortStableFunc(items, func(a, b T) int {
		res, ok := compareField(a, b, field)
		if !ok {
			return res
		}
		if desc {
			return -res
		}
		return res
	})
}

// compareField returns ok=false when the ordering is fixed by a missing value
// and must not be flipped for descending order.
func compareField(a, b Record, field string) (int, bool) {
	an, aok := a.Number(field)
	bn, bok := b.Number(field)
	if aok || bok {
		if res, done := missingLast(aok, bok); done {
			return res, false
		}
		return cmp.Compare(an, bn), true
	}

	at, aok := a.Time(field)
	bt, bok := b.Time(field)
	if aok || bok {
		if res, done := missingLast(aok, bok); done {
			return res, false
		}
		return at.Compare(bt), true
	}

	av, bv := a.Values(field), b.Values(field)
	if res, done := missingLast(len(av) > 0, len(bv) > 0); done {
		return res, false
	}
	return cmp.Compare(av[0], bv[0]), true
}

func missingLast(aok, bok bool) (int, bool) {
	switch {
	case aok && bok:
		return 0, false
	case aok:
		return -1, true
	case bok:
		return 1, true
	default:
		return 0, true
	}
}
