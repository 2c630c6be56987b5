package filter

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// QuerySpec tells ParseQuery which query parameters map to which criteria.
type QuerySpec struct {
	// Fields are accepted as multi-value filters: ?estado=a,b or ?estado=a&estado=b.
	Fields []string
	// DateField is the record field the desde/hasta range applies to.
	DateField string
	// NumberField is the record field the min parameter applies to.
	NumberField string
}

// ParseQuery builds Criteria from a request query. Parameters outside spec are
// ignored; values that fail to parse are recorded in Criteria.Malformed.
func ParseQuery(q url.Values, spec QuerySpec) Criteria {
	c := Criteria{Values: map[string][]string{}}

	for _, field := range spec.Fields {
		vals := splitValues(q[field])
		if len(vals) > 0 {
			c.Values[field] = vals
		}
	}

	if spec.DateField != "" {
		dr := &DateRange{Field: spec.DateField}
		if s := strings.TrimSpace(q.Get("desde")); s != "" {
			if t, err := time.Parse(dateLayout, s); err == nil {
				dr.From = &t
			} else {
				c.Malformed = append(c.Malformed, "desde")
			}
		}
		if s := strings.TrimSpace(q.Get("hasta")); s != "" {
			if t, err := time.Parse(dateLayout, s); err == nil {
				// hasta is inclusive of the whole day
				end := t.Add(24*time.Hour - time.Nanosecond)
				dr.To = &end
			} else {
				c.Malformed = append(c.Malformed, "hasta")
			}
		}
		if dr.From != nil || dr.To != nil {
			c.Date = dr
		}
	}

	if spec.NumberField != "" {
		if s := strings.TrimSpace(q.Get("min")); s != "" {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				c.Min = &Threshold{Field: spec.NumberField, Min: n}
			} else {
				c.Malformed = append(c.Malformed, "min")
			}
		}
	}

	c.Search = strings.TrimSpace(q.Get("q"))
	c.SortBy = strings.TrimSpace(q.Get("orden"))
	c.Desc = strings.EqualFold(q.Get("dir"), "desc")
	return c
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
