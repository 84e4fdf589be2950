package jsonpath

import "strings"

// ResultType selects the shape of values the facade returns.
type ResultType string

const (
	ResultValue          ResultType = "value"
	ResultPath           ResultType = "path"
	ResultPointer        ResultType = "pointer"
	ResultParent         ResultType = "parent"
	ResultParentProperty ResultType = "parentProperty"
	ResultAll            ResultType = "all"
)

// AllResult is the shape returned when ResultType is ResultAll: the full
// match record, with both Path and Pointer materialized as strings.
type AllResult struct {
	Path           string      `json:"path"`
	Pointer        string      `json:"pointer"`
	Value          interface{} `json:"value"`
	Parent         interface{} `json:"parent"`
	ParentProperty interface{} `json:"parentProperty"`
}

// notFound is the nullary sentinel returned when wrap is false and no
// match was found.
type notFound struct{}

// NotFound is the sentinel value Eval/Query return (wrap=false) when a
// query has no matches.
var NotFound interface{} = notFound{}

// IsNotFoundResult reports whether v is the not-found sentinel.
func IsNotFoundResult(v interface{}) bool {
	_, ok := v.(notFound)
	return ok
}

func shapeOne(m Match, rt ResultType) interface{} {
	switch rt {
	case ResultPath:
		return canonicalPathString(m.Path)
	case ResultPointer:
		return jsonPointer(m.Path)
	case ResultParent:
		return m.Parent
	case ResultParentProperty:
		return m.ParentProperty
	case ResultAll:
		return AllResult{
			Path:           canonicalPathString(m.Path),
			Pointer:        jsonPointer(m.Path),
			Value:          m.Value,
			Parent:         m.Parent,
			ParentProperty: m.ParentProperty,
		}
	default: // ResultValue
		return m.Value
	}
}

// shape converts raw matches into the user-facing result per the
// configured ResultType, wrap, and flatten options. Matching the spec's
// callback contract, cb (if non-nil) is invoked once per match.
func shape(matches []Match, rt ResultType, wrap bool, flatten bool, cb func(value interface{}, kind string, m Match)) interface{} {
	values := make([]interface{}, 0, len(matches))
	for _, m := range matches {
		v := shapeOne(m, rt)
		if cb != nil {
			kind := "value"
			if m.IsProperty {
				kind = "property"
			}
			cb(v, kind, m)
		}
		values = append(values, v)
	}

	if !wrap {
		if len(values) == 0 {
			return NotFound
		}
		if len(matches) == 1 && !matches[0].HasArrExpr {
			return values[0]
		}
	}

	if flatten {
		flat := make([]interface{}, 0, len(values))
		for _, v := range values {
			if arr, ok := v.([]interface{}); ok {
				flat = append(flat, arr...)
			} else {
				flat = append(flat, v)
			}
		}
		return flat
	}

	return values
}

// canonicalPathString rebuilds the bracketed path string from a walked
// match path (as opposed to stepsToString, its token-level counterpart).
// It is an alias of stepsToPathString kept for symmetry with the spec's
// naming.
func canonicalPathString(path []string) string {
	return stepsToPathString(path)
}

// jsonPointer renders path as an RFC 6901 JSON Pointer: each component
// after $ becomes /component, with ~ -> ~0 and / -> ~1.
func jsonPointer(path []string) string {
	var b strings.Builder
	for i, c := range path {
		if i == 0 {
			continue // omit '$'
		}
		b.WriteByte('/')
		b.WriteString(escapePointer(c))
	}
	return b.String()
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}
