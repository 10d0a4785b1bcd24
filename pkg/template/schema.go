package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

const schemaBase = "https://vcw.local/schemas/"

// Each kind carries a schema for its merged view. Unknown keys are allowed
// so that older deltas keep loading after a template gains or drops fields.
var schemaSources = map[types.Kind]string{
	types.KindWelcome: `{
		"type": "object",
		"properties": {
			"content": {"type": "string"},
			"mutableData": {"type": "object"}
		}
	}`,
	types.KindDesignTables: `{
		"type": "object",
		"properties": {
			"content": {"type": "string"},
			"mutableData": {
				"type": "object",
				"properties": {
					"notes": {"type": "string"},
					"customData": {"type": "object"}
				}
			}
		}
	}`,
	types.KindSnowLoad: `{
		"$defs": {
			"num": {"type": ["number", "null"]}
		},
		"type": "object",
		"required": ["snowDefaults", "driftDefaults"],
		"properties": {
			"snowDefaults": {
				"type": "object",
				"properties": {
					"location": {"type": "string"},
					"slope": {"$ref": "#/$defs/num"},
					"is": {"$ref": "#/$defs/num"},
					"ca": {"$ref": "#/$defs/num"},
					"cb": {"$ref": "#/$defs/num"}
				}
			},
			"driftDefaults": {
				"type": "object",
				"additionalProperties": {"$ref": "#/$defs/num"}
			},
			"results": {
				"type": "object",
				"properties": {
					"driftResults": {"type": ["object", "null"]}
				}
			}
		}
	}`,
	types.KindWindLoad: `{
		"$defs": {
			"num": {"type": ["number", "null"]}
		},
		"type": "object",
		"required": ["windDefaults"],
		"properties": {
			"windDefaults": {
				"type": "object",
				"properties": {
					"location": {"type": "string"},
					"iw": {"$ref": "#/$defs/num"},
					"ce": {"$ref": "#/$defs/num"},
					"ct": {"$ref": "#/$defs/num"}
				}
			},
			"results": {
				"type": "object",
				"properties": {
					"windPressure": {"$ref": "#/$defs/num"},
					"designPressure": {"$ref": "#/$defs/num"}
				}
			}
		}
	}`,
	types.KindSeismic: `{
		"type": "object",
		"required": ["seismicTabData"],
		"properties": {
			"seismicTabData": {
				"type": "object",
				"additionalProperties": {"type": "string"}
			},
			"seismicResults": {"type": "object"}
		}
	}`,
}

func compileSchemas() (map[types.Kind]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	for kind, src := range schemaSources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse schema for %s: %w", kind, err)
		}
		if err := compiler.AddResource(schemaBase+string(kind)+".json", doc); err != nil {
			return nil, fmt.Errorf("failed to add schema for %s: %w", kind, err)
		}
	}

	schemas := make(map[types.Kind]*jsonschema.Schema, len(schemaSources))
	for kind := range schemaSources {
		sch, err := compiler.Compile(schemaBase + string(kind) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", kind, err)
		}
		schemas[kind] = sch
	}
	return schemas, nil
}

// normalize converts a content tree into the value model the validator
// expects by round-tripping it through JSON.
func normalize(content types.Content) (any, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// ValidationError reports content or input that was rejected before any
// backend call was made.
type ValidationError struct {
	Kind   types.Kind
	Paths  []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Paths) == 0 {
		return fmt.Sprintf("invalid %s content: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("invalid %s content at %s: %s", e.Kind, strings.Join(e.Paths, ", "), e.Reason)
}

func newValidationError(kind types.Kind, err error) *ValidationError {
	verr := &ValidationError{Kind: kind, Reason: err.Error()}

	var schemaErr *jsonschema.ValidationError
	if errors.As(err, &schemaErr) {
		seen := make(map[string]bool)
		collectPaths(schemaErr, seen)
		for path := range seen {
			verr.Paths = append(verr.Paths, path)
		}
		sort.Strings(verr.Paths)
		verr.Reason = "schema violation"
	}
	return verr
}

func collectPaths(err *jsonschema.ValidationError, seen map[string]bool) {
	if len(err.Causes) == 0 {
		seen["/"+strings.Join(err.InstanceLocation, "/")] = true
		return
	}
	for _, cause := range err.Causes {
		collectPaths(cause, seen)
	}
}
