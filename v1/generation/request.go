package generation

import (
	"encoding/json"
	"strings"

	rcerrors "github.com/tenchan000517/novel-sub017/v1/errors"
)

// Request describes a single text-generation call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// canonicalRequest fixes the field order and names used for cache keys so
// that identical logical requests always encode identically.
type canonicalRequest struct {
	Model       string  `json:"model"`
	System      string  `json:"system"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// CacheKey returns the canonical raw key for r. Surrounding whitespace in
// the model, system and prompt fields is ignored.
func (r Request) CacheKey() (string, error) {
	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		return "", rcerrors.ErrEmptyPrompt
	}
	b, err := json.Marshal(canonicalRequest{
		Model:       strings.TrimSpace(r.Model),
		System:      strings.TrimSpace(r.System),
		Prompt:      prompt,
		Temperature: r.Temperature,
		TopP:        r.TopP,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
