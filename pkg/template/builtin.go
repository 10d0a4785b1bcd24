package template

import "github.com/Weynie/van-construction-web-sub000/pkg/types"

// ImmutableKey names the subtree of a template holding reference constants.
// It is part of the merged view but never part of a stored delta.
const ImmutableKey = "immutableConstants"

const welcomeContent = `<div class="welcome-content">
  <div class="feature-overview">
    <h3>Available Tools:</h3>
    <ul>
      <li><strong>Snow Load Calculator</strong> - Calculate snow loads for various roof configurations</li>
      <li><strong>Wind Load Calculator</strong> - Determine wind pressure loads for structures</li>
      <li><strong>Seismic Analysis</strong> - Get seismic hazard data for specific locations</li>
    </ul>
  </div>
  <div class="getting-started">
    <h3>Getting Started:</h3>
    <ol>
      <li>Create a new tab using the "+" button</li>
      <li>Select the appropriate calculator type</li>
      <li>Enter your project parameters</li>
      <li>Review the calculated results</li>
    </ol>
  </div>
</div>`

const designTablesContent = `<div class="design-tables-content">
  <h1>Design Tables</h1>
  <p>Custom design tables and calculations workspace.</p>
  <div class="tables-area">
    <h3>Design Tables:</h3>
    <p>Create and manage your custom design tables here.</p>
  </div>
</div>`

// Numbers are float64 so templates compare cleanly against decoded JSON.
func builtinTemplates() map[types.Kind]types.Content {
	return map[types.Kind]types.Content{
		types.KindWelcome: {
			"content":     welcomeContent,
			"mutableData": map[string]any{},
		},
		types.KindDesignTables: {
			"content": designTablesContent,
			"mutableData": map[string]any{
				"notes":      "",
				"customData": map[string]any{},
			},
		},
		types.KindSnowLoad: {
			"snowDefaults": map[string]any{
				"location": "North Vancouver",
				"slope":    1.0,
				"is":       1.0,
				"ca":       1.0,
				"cb":       0.8,
			},
			"driftDefaults": map[string]any{
				"a":         1.0,
				"h":         5.0,
				"hp_lower":  2.0,
				"x":         3.0,
				"ws_upper":  10.0,
				"ls_upper":  15.0,
				"hp_upper":  1.0,
				"ws_lower2": 15.0,
				"ls_lower2": 20.0,
				"ws_lower3": 15.0,
				"ls_lower3": 25.0,
			},
			ImmutableKey: map[string]any{
				"Ss":         2.0,
				"Sr":         0.0,
				"γ":          3.0,
				"Cb":         1.0,
				"Cs_default": 1.0,
				"Is":         1.0,
				"Ca":         1.0,
				"Cw":         1.0,
				"calculationMethods": map[string]any{
					"basicSnowLoad": "S = Ss * Cb * Cs * Is * Ca * Cw",
					"driftLoad":     "Calculated based on NBC 2020 specifications",
				},
			},
			"results": map[string]any{
				"basicSnowLoad": nil,
				"driftResults": map[string]any{
					"case1": nil,
					"case2": nil,
					"case3": nil,
				},
			},
		},
		types.KindWindLoad: {
			"windDefaults": map[string]any{
				"location": "Richmond",
				"iw":       1.0,
				"ce":       0.7,
				"ct":       1.0,
			},
			ImmutableKey: map[string]any{
				"q":                 0.613,
				"referenceVelocity": 50.0,
				"calculationMethods": map[string]any{
					"windPressure": "q = 0.5 * ρ * V² * Ce * Ct * Iw",
				},
			},
			"results": map[string]any{
				"windPressure":   nil,
				"designPressure": nil,
			},
		},
		types.KindSeismic: {
			"seismicTabData": map[string]any{
				"designer": "",
				"address":  "",
				"project":  "",
				"revision": "",
				"date":     "",
				"bldgCode": "",
			},
			"seismicResults": map[string]any{
				"site_class":        nil,
				"coordinates":       nil,
				"address_checked":   nil,
				"rgb":               nil,
				"most_similar_soil": nil,
				"soil_pressure":     nil,
				"sa_site":           nil,
				"sa_x450":           nil,
			},
			ImmutableKey: map[string]any{
				"apiEndpoint":    "/api/seismic-info",
				"requiredFields": []any{"address"},
				"validationRules": map[string]any{
					"address": "required|min:5",
				},
			},
		},
	}
}

// Legacy display names stored by older clients
var aliases = map[string]types.Kind{
	"Welcome":         types.KindWelcome,
	"Design Tables":   types.KindWelcome,
	"Snow Load":       types.KindSnowLoad,
	"Wind Load":       types.KindWindLoad,
	"Seismic Hazards": types.KindSeismic,
}

// Kinds whose content lives entirely in the template
var templateOnly = map[types.Kind]bool{
	types.KindWelcome:      true,
	types.KindDesignTables: true,
}
