package template

import (
	"encoding/json"
	"math"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// mergeInto applies src onto dst in place. Keyed structures on both sides
// are merged recursively; anything else in src replaces the value in dst.
// A nil value present in src overrides dst, an absent key leaves it alone.
func mergeInto(dst, src map[string]any) map[string]any {
	for key, value := range src {
		if srcMap, ok := asMap(value); ok {
			if dstMap, ok := asMap(dst[key]); ok {
				dst[key] = mergeInto(dstMap, srcMap)
				continue
			}
		}
		dst[key] = types.CloneValue(value)
	}
	return dst
}

// diff returns the keys of current whose values differ from tmpl. The
// immutable subtree is skipped at every level.
func diff(tmpl, current map[string]any) map[string]any {
	delta := make(map[string]any)
	for key, value := range current {
		if key == ImmutableKey {
			continue
		}

		tmplValue, present := tmpl[key]
		curMap, curIsMap := asMap(value)
		tmplMap, tmplIsMap := asMap(tmplValue)
		if curIsMap && tmplIsMap {
			if nested := diff(tmplMap, curMap); len(nested) > 0 {
				delta[key] = nested
			}
			continue
		}

		if !present || !Equal(value, tmplValue) {
			delta[key] = types.CloneValue(value)
		}
	}
	return delta
}

func stripImmutable(m map[string]any) {
	delete(m, ImmutableKey)
	for _, value := range m {
		if nested, ok := asMap(value); ok {
			stripImmutable(nested)
		}
	}
}

// MergeFragments merges fragment onto a copy of base with the template merge
// law. Later fragments win per key.
func MergeFragments(base, fragment types.Content) types.Content {
	out := base.Clone()
	if out == nil {
		out = types.Content{}
	}
	return mergeInto(out, fragment)
}

// StripImmutable returns a copy of delta without any immutable subtree
func StripImmutable(delta types.Content) types.Content {
	out := delta.Clone()
	if out == nil {
		return types.Content{}
	}
	stripImmutable(out)
	return out
}

// Equal reports whether two JSON values are equal. Numbers compare by value
// regardless of their Go type; maps and arrays compare element-wise.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && (af == bf || (math.IsNaN(af) && math.IsNaN(bf)))
	}

	if am, ok := asMap(a); ok {
		bm, ok := asMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for key, av := range am {
			bv, present := bm[key]
			if !present || !Equal(av, bv) {
				return false
			}
		}
		return true
	}

	if as, ok := asSlice(a); ok {
		bs, ok := asSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !Equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case types.Content:
		return m, true
	}
	return nil, false
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
