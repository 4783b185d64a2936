// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// ModelPrice is USD per million tokens, input and output priced
// separately. The table below is carried over from the pricing the
// original chat-cost accounting used; unknown models fall back to the
// Kimi K2 row rather than returning an error, so costing never blocks
// a response.
type ModelPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var priceTable = map[string]ModelPrice{
	"moonshotai/kimi-k2":                      {InputPerMillion: 0.456, OutputPerMillion: 1.84},
	"anthropic/claude-3.5-sonnet":              {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"anthropic/claude-3-5-sonnet-20241022":     {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"anthropic/claude-3-haiku":                 {InputPerMillion: 0.25, OutputPerMillion: 1.25},
	"anthropic/claude-3-haiku-20240307":        {InputPerMillion: 0.25, OutputPerMillion: 1.25},
	"anthropic/claude-3-opus":                  {InputPerMillion: 15.0, OutputPerMillion: 75.0},
	"anthropic/claude-3-opus-20240229":         {InputPerMillion: 15.0, OutputPerMillion: 75.0},
	"openai/gpt-4-turbo":                       {InputPerMillion: 10.0, OutputPerMillion: 30.0},
	"openai/gpt-4-turbo-preview":               {InputPerMillion: 10.0, OutputPerMillion: 30.0},
	"openai/gpt-4o":                            {InputPerMillion: 2.5, OutputPerMillion: 10.0},
	"openai/gpt-4o-mini":                       {InputPerMillion: 0.15, OutputPerMillion: 0.6},
}

var defaultPrice = priceTable["moonshotai/kimi-k2"]

// PriceFor returns the per-million rates for model, falling back to
// the default row if the model isn't in the table.
func PriceFor(model string) ModelPrice {
	if price, ok := priceTable[model]; ok {
		return price
	}
	return defaultPrice
}

// Cost is the USD breakdown for one completion's token usage.
type Cost struct {
	InputTokens          int     `json:"input_tokens"`
	OutputTokens         int     `json:"output_tokens"`
	TotalTokens          int     `json:"total_tokens"`
	InputCostUSD         float64 `json:"input_cost_usd"`
	OutputCostUSD        float64 `json:"output_cost_usd"`
	TotalCostUSD         float64 `json:"total_cost_usd"`
	InputPricePerMillion float64 `json:"model_input_price_per_million"`
	OutputPricePerMillion float64 `json:"model_output_price_per_million"`
}

// CalculateCost costs a completion's usage against model's price row.
func CalculateCost(model string, usage Usage) Cost {
	price := PriceFor(model)
	inputCost := float64(usage.PromptTokens) / 1_000_000 * price.InputPerMillion
	outputCost := float64(usage.CompletionTokens) / 1_000_000 * price.OutputPerMillion
	return Cost{
		InputTokens:           usage.PromptTokens,
		OutputTokens:          usage.CompletionTokens,
		TotalTokens:           usage.TotalTokens,
		InputCostUSD:          inputCost,
		OutputCostUSD:         outputCost,
		TotalCostUSD:          inputCost + outputCost,
		InputPricePerMillion:  price.InputPerMillion,
		OutputPricePerMillion: price.OutputPerMillion,
	}
}
