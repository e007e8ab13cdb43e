// Package query turns request query strings into user listing parameters.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultLimit applies when _limit is absent.
	DefaultLimit = 100
	// NoLimit disables pagination (_limit=-1).
	NoLimit = -1
)

// Reserved keys.
const (
	KeySearch = "_q"
	KeyLimit  = "_limit"
	KeyStart  = "_start"
	KeySort   = "_sort"
)

// filterable maps public attribute names to columns.
var filterable = map[string]string{
	"id":              "id",
	"username":        "username",
	"slug":            "slug",
	"email":           "email",
	"ethereumAddress": "ethereum_address",
	"type":            "type",
	"role":            "role",
	"confirmed":       "confirmed",
	"blocked":         "blocked",
	"created_at":      "created_at",
	"updated_at":      "updated_at",
}

// boolColumns hold booleans; their filter values are parsed before binding.
var boolColumns = map[string]bool{
	"confirmed": true,
	"blocked":   true,
}

// Sort is one ordering term.
type Sort struct {
	Column string
	Desc   bool
}

// Params is a parsed listing request.
type Params struct {
	Search    string
	HasSearch bool
	Limit     int
	Start     int
	Sort      []Sort
	// Where holds equality filters keyed by column.
	Where map[string]any
	// In holds membership filters keyed by column. Boolean columns are
	// never membership filtered.
	In map[string][]string
}

// New returns empty params with the default limit.
func New() Params {
	return Params{
		Limit: DefaultLimit,
		Where: map[string]any{},
		In:    map[string][]string{},
	}
}

// Parse reads the listing parameters from values. Unknown keys are ignored.
func Parse(values url.Values) Params {
	p := New()
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		switch key {
		case KeySearch:
			p.HasSearch = true
			p.Search = v
		case KeyLimit:
			if n, err := strconv.Atoi(v); err == nil && (n >= 0 || n == NoLimit) {
				p.Limit = n
			}
		case KeyStart:
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				p.Start = n
			}
		case KeySort:
			p.Sort = parseSort(v)
		default:
			if field, ok := strings.CutSuffix(key, "_in"); ok {
				if col, ok := filterable[field]; ok && !boolColumns[col] {
					p.In[col] = splitValues(vals)
				}
				continue
			}
			if col, ok := filterable[key]; ok {
				if val, ok := typed(col, v); ok {
					p.Where[col] = val
				}
			}
		}
	}
	return p
}

// WithFilter returns a copy of p with an extra equality filter on attr.
func (p Params) WithFilter(attr, value string) Params {
	col, ok := filterable[attr]
	if !ok {
		return p
	}
	val, ok := typed(col, value)
	if !ok {
		return p
	}
	where := make(map[string]any, len(p.Where)+1)
	for k, v := range p.Where {
		where[k] = v
	}
	where[col] = val
	p.Where = where
	return p
}

// Values flattens every value of values except the excluded keys, in key order.
func Values(values url.Values, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		out = append(out, values[k]...)
	}
	return out
}

// typed converts a raw filter value to the column's type. Values that do not
// parse are rejected.
func typed(col, raw string) (any, bool) {
	if !boolColumns[col] {
		return raw, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return b, true
}

func parseSort(raw string) []Sort {
	var out []Sort
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		field, dir, _ := strings.Cut(term, ":")
		col, ok := filterable[field]
		if !ok {
			continue
		}
		out = append(out, Sort{Column: col, Desc: strings.EqualFold(dir, "desc")})
	}
	return out
}

func splitValues(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
