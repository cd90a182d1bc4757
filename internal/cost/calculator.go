// Package cost estimates the upstream spend of an aggregation run.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	// Calls is the USD price of one upstream call, by provider then operation.
	Calls map[string]map[string]float64 `yaml:"calls" mapstructure:"calls"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// Call returns the flat price of one call to provider's operation.
func (c *Calculator) Call(provider, operation string) float64 {
	return c.rates.Calls[provider][operation]
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Calls: map[string]map[string]float64{
			"google": {
				"search_text":   0.032,
				"place_details": 0.017,
				"photo":         0.007,
			},
			"foursquare": {
				"search": 0.015,
				"place":  0.015,
				"photos": 0,
				"tips":   0,
			},
			"osm": {"query": 0},
		},
	}
}
