package main

import (
	"fmt"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// normalizeContent converts YAML-decoded content to the shapes JSON
// decoding produces, so content from a file merges and compares like
// content from the backend. Only the root stays a types.Content.
func normalizeContent(c types.Content) types.Content {
	out := make(types.Content, len(c))
	for k, item := range c {
		out[k] = normalize(item)
	}
	return out
}

// normalize converts a nested value. yaml.v3 decodes nested mappings into
// the type of the outer map, so nested types.Content is flattened too.
func normalize(v any) any {
	switch val := v.(type) {
	case types.Content:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = normalize(item)
	}
	return out
}
