package models

import "time"

type TokenUsage struct {
	InputTextTokens  int64 `json:"input_text_tokens"`
	InputImageTokens int64 `json:"input_image_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
}

func (u TokenUsage) Total() int64 {
	return u.InputTextTokens + u.InputImageTokens + u.OutputTokens
}

// UsageDelta is what a single provider response consumed. Missing
// provider fields stay zero.
type UsageDelta struct {
	TextTokens   int64 `json:"text_tokens"`
	ImageTokens  int64 `json:"image_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

const CostErrorPermissionDenied = "permission_denied"

type CostCache struct {
	Amount     float64   `json:"amount"`
	CapturedAt time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

type ItemMetadata struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}
