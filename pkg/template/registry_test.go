package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	return r
}

func TestResolve(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name    string
		kind    types.Kind
		want    types.Kind
		wantErr bool
	}{
		{name: "canonical snow load", kind: types.KindSnowLoad, want: types.KindSnowLoad},
		{name: "canonical design tables", kind: types.KindDesignTables, want: types.KindDesignTables},
		{name: "legacy snow load", kind: "Snow Load", want: types.KindSnowLoad},
		{name: "legacy wind load", kind: "Wind Load", want: types.KindWindLoad},
		{name: "legacy seismic", kind: "Seismic Hazards", want: types.KindSeismic},
		{name: "legacy design tables", kind: "Design Tables", want: types.KindWelcome},
		{name: "legacy welcome", kind: "Welcome", want: types.KindWelcome},
		{name: "unknown", kind: "beam_design", wantErr: true},
		{name: "empty", kind: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.kind)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				assert.False(t, r.IsValidKind(tt.kind))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, r.IsValidKind(tt.kind))
		})
	}
}

func TestKinds(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, []types.Kind{
		types.KindDesignTables,
		types.KindSeismic,
		types.KindSnowLoad,
		types.KindWelcome,
		types.KindWindLoad,
	}, r.Kinds())
}

func TestIsStorageBacked(t *testing.T) {
	r := newTestRegistry(t)
	assert.True(t, r.IsStorageBacked(types.KindSnowLoad))
	assert.True(t, r.IsStorageBacked("Seismic Hazards"))
	assert.False(t, r.IsStorageBacked(types.KindWelcome))
	assert.False(t, r.IsStorageBacked(types.KindDesignTables))
	assert.False(t, r.IsStorageBacked("nope"))
}

func TestGetReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)

	first, err := r.Get(types.KindSnowLoad)
	require.NoError(t, err)
	first["snowDefaults"].(map[string]any)["location"] = "Whistler"

	second, err := r.Get(types.KindSnowLoad)
	require.NoError(t, err)
	assert.Equal(t, "North Vancouver", second["snowDefaults"].(map[string]any)["location"])
}

func TestGetUnknownKind(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("unknown")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.Merge("unknown", types.Content{"a": 1})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.ExtractDelta("unknown", types.Content{"a": 1})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMergeEmptyDeltaSnowLoad(t *testing.T) {
	r := newTestRegistry(t)

	merged, err := r.Merge(types.KindSnowLoad, types.Content{})
	require.NoError(t, err)

	snow := merged["snowDefaults"].(map[string]any)
	assert.Equal(t, "North Vancouver", snow["location"])
	assert.Equal(t, 1.0, snow["slope"])
	assert.Equal(t, 1.0, snow["is"])
	assert.Equal(t, 1.0, snow["ca"])
	assert.Equal(t, 0.8, snow["cb"])
	assert.Contains(t, merged, ImmutableKey)

	tmpl, err := r.Get(types.KindSnowLoad)
	require.NoError(t, err)
	assert.Equal(t, tmpl, merged)
}

func TestMerge(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name  string
		delta types.Content
		check func(t *testing.T, merged types.Content)
	}{
		{
			name:  "nested scalar override keeps siblings",
			delta: types.Content{"snowDefaults": map[string]any{"slope": 3.0}},
			check: func(t *testing.T, merged types.Content) {
				snow := merged["snowDefaults"].(map[string]any)
				assert.Equal(t, 3.0, snow["slope"])
				assert.Equal(t, "North Vancouver", snow["location"])
			},
		},
		{
			name:  "zero overrides default",
			delta: types.Content{"snowDefaults": map[string]any{"cb": 0.0}},
			check: func(t *testing.T, merged types.Content) {
				assert.Equal(t, 0.0, merged["snowDefaults"].(map[string]any)["cb"])
			},
		},
		{
			name:  "empty string overrides default",
			delta: types.Content{"snowDefaults": map[string]any{"location": ""}},
			check: func(t *testing.T, merged types.Content) {
				assert.Equal(t, "", merged["snowDefaults"].(map[string]any)["location"])
			},
		},
		{
			name:  "null overrides default",
			delta: types.Content{"snowDefaults": map[string]any{"slope": nil}},
			check: func(t *testing.T, merged types.Content) {
				snow := merged["snowDefaults"].(map[string]any)
				v, ok := snow["slope"]
				assert.True(t, ok)
				assert.Nil(t, v)
			},
		},
		{
			name:  "array replaces wholesale",
			delta: types.Content{ImmutableKey: map[string]any{"requiredFields": []any{"designer", "date"}}},
			check: func(t *testing.T, merged types.Content) {
				// snow_load has no requiredFields; the array is added as is
				consts := merged[ImmutableKey].(map[string]any)
				assert.Equal(t, []any{"designer", "date"}, consts["requiredFields"])
			},
		},
		{
			name:  "scalar replaces structure",
			delta: types.Content{"results": "pending"},
			check: func(t *testing.T, merged types.Content) {
				assert.Equal(t, "pending", merged["results"])
			},
		},
		{
			name:  "structure replaces null",
			delta: types.Content{"results": map[string]any{"basicSnowLoad": map[string]any{"value": 2.4}}},
			check: func(t *testing.T, merged types.Content) {
				results := merged["results"].(map[string]any)
				assert.Equal(t, map[string]any{"value": 2.4}, results["basicSnowLoad"])
				assert.Contains(t, results, "driftResults")
			},
		},
		{
			name:  "unknown key kept",
			delta: types.Content{"legacyField": 7.0},
			check: func(t *testing.T, merged types.Content) {
				assert.Equal(t, 7.0, merged["legacyField"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := r.Merge(types.KindSnowLoad, tt.delta)
			require.NoError(t, err)
			tt.check(t, merged)
		})
	}
}

func TestMergeArrayReplacedNotMerged(t *testing.T) {
	r := newTestRegistry(t)

	merged, err := r.Merge(types.KindSeismic, types.Content{
		ImmutableKey: map[string]any{"requiredFields": []any{"designer"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"designer"}, merged[ImmutableKey].(map[string]any)["requiredFields"])
}

func TestMergeDoesNotAliasDelta(t *testing.T) {
	r := newTestRegistry(t)

	delta := types.Content{"snowDefaults": map[string]any{"slope": 2.0}}
	merged, err := r.Merge(types.KindSnowLoad, delta)
	require.NoError(t, err)

	merged["snowDefaults"].(map[string]any)["slope"] = 9.0
	assert.Equal(t, 2.0, delta["snowDefaults"].(map[string]any)["slope"])
}

func TestMergeIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	deltas := []types.Content{
		{},
		{"snowDefaults": map[string]any{"slope": 4.0, "location": "Burnaby"}},
		{"driftDefaults": map[string]any{"a": 0.0}, "results": map[string]any{"basicSnowLoad": 1.7}},
		{"results": nil},
	}

	for _, delta := range deltas {
		once, err := r.Merge(types.KindSnowLoad, delta)
		require.NoError(t, err)

		twice := MergeFragments(once, delta)
		assert.Equal(t, once, twice)

		again, err := r.Merge(types.KindSnowLoad, delta)
		require.NoError(t, err)
		assert.Equal(t, once, again)
	}
}

func TestExtractDelta(t *testing.T) {
	r := newTestRegistry(t)

	merged, err := r.Merge(types.KindSnowLoad, nil)
	require.NoError(t, err)

	snow := merged["snowDefaults"].(map[string]any)
	snow["slope"] = 3
	snow["cb"] = 0.8
	merged[ImmutableKey].(map[string]any)["Ss"] = 9.9
	merged["results"].(map[string]any)["basicSnowLoad"] = 2.5

	delta, err := r.ExtractDelta(types.KindSnowLoad, merged)
	require.NoError(t, err)

	assert.Equal(t, types.Content{
		"snowDefaults": map[string]any{"slope": 3},
		"results":      map[string]any{"basicSnowLoad": 2.5},
	}, delta)
}

func TestExtractDeltaNumericEquality(t *testing.T) {
	r := newTestRegistry(t)

	delta, err := r.ExtractDelta(types.KindSnowLoad, types.Content{
		"snowDefaults": map[string]any{"slope": 1, "is": int64(1), "ca": float32(1)},
	})
	require.NoError(t, err)
	assert.Empty(t, delta)
}

func TestExtractDeltaArrays(t *testing.T) {
	r := newTestRegistry(t)

	delta, err := r.ExtractDelta(types.KindSeismic, types.Content{
		"seismicResults": map[string]any{"coordinates": []any{49.2, -123.1}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.Content{
		"seismicResults": map[string]any{"coordinates": []any{49.2, -123.1}},
	}, delta)
}

func TestDeltaMinimality(t *testing.T) {
	r := newTestRegistry(t)

	views := []types.Content{
		{"snowDefaults": map[string]any{"slope": 2.0, "location": "North Vancouver"}},
		{"driftDefaults": map[string]any{"h": 5.0, "x": 0.0}, ImmutableKey: map[string]any{"Cw": 2.0}},
		{"results": map[string]any{"driftResults": map[string]any{"case1": 1.2}}},
	}

	for _, view := range views {
		first, err := r.ExtractDelta(types.KindSnowLoad, view)
		require.NoError(t, err)

		merged, err := r.Merge(types.KindSnowLoad, first)
		require.NoError(t, err)

		delta, err := r.ExtractDelta(types.KindSnowLoad, merged)
		require.NoError(t, err)

		assert.NotContains(t, delta, ImmutableKey)
		assert.Equal(t, first, delta)

		tmpl, err := r.Get(types.KindSnowLoad)
		require.NoError(t, err)
		assertNoDefaults(t, tmpl, delta)
	}
}

func assertNoDefaults(t *testing.T, tmpl, delta map[string]any) {
	t.Helper()
	for key, value := range delta {
		nested, isMap := value.(map[string]any)
		tmplNested, tmplIsMap := tmpl[key].(map[string]any)
		if isMap && tmplIsMap {
			assertNoDefaults(t, tmplNested, nested)
			continue
		}
		if tv, ok := tmpl[key]; ok {
			assert.False(t, Equal(tv, value), "key %q equals its default", key)
		}
	}
}

func TestValidate(t *testing.T) {
	r := newTestRegistry(t)

	for _, kind := range r.Kinds() {
		t.Run(string(kind)+" template is valid", func(t *testing.T) {
			tmpl, err := r.Get(kind)
			require.NoError(t, err)
			assert.NoError(t, r.Validate(kind, tmpl))
		})
	}

	t.Run("wrong type rejected", func(t *testing.T) {
		merged, err := r.Merge(types.KindSnowLoad, types.Content{
			"snowDefaults": map[string]any{"slope": "steep"},
		})
		require.NoError(t, err)

		err = r.Validate(types.KindSnowLoad, merged)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, types.KindSnowLoad, verr.Kind)
		assert.Contains(t, verr.Paths, "/snowDefaults/slope")
	})

	t.Run("null numeric accepted", func(t *testing.T) {
		merged, err := r.Merge(types.KindWindLoad, types.Content{
			"windDefaults": map[string]any{"ce": nil},
		})
		require.NoError(t, err)
		assert.NoError(t, r.Validate(types.KindWindLoad, merged))
	})

	t.Run("unknown kind", func(t *testing.T) {
		assert.ErrorIs(t, r.Validate("nope", types.Content{}), ErrUnknownKind)
	})
}
