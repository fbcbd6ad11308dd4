package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcerrors "github.com/tenchan000517/novel-sub017/v1/errors"
)

func TestRequestCacheKeyCanonical(t *testing.T) {
	a := Request{Model: "gpt-4o", Prompt: "Summarize chapter 3", Temperature: 0.7}
	b := Request{Model: " gpt-4o ", Prompt: "\nSummarize chapter 3\t", Temperature: 0.7}

	ka, err := a.CacheKey()
	require.NoError(t, err)
	kb, err := b.CacheKey()
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
	assert.JSONEq(t, `{"model":"gpt-4o","system":"","prompt":"Summarize chapter 3","temperature":0.7,"top_p":0,"max_tokens":0}`, ka)
}

func TestRequestCacheKeyDistinguishesParameters(t *testing.T) {
	base := Request{Model: "m", Prompt: "p", Temperature: 0.2}
	variants := []Request{
		{Model: "other", Prompt: "p", Temperature: 0.2},
		{Model: "m", Prompt: "q", Temperature: 0.2},
		{Model: "m", Prompt: "p", Temperature: 0.3},
		{Model: "m", Prompt: "p", Temperature: 0.2, TopP: 0.9},
		{Model: "m", Prompt: "p", Temperature: 0.2, MaxTokens: 64},
		{Model: "m", System: "be brief", Prompt: "p", Temperature: 0.2},
	}
	kb, err := base.CacheKey()
	require.NoError(t, err)
	for _, v := range variants {
		kv, err := v.CacheKey()
		require.NoError(t, err)
		assert.NotEqual(t, kb, kv, "variant %+v", v)
	}
}

func TestRequestCacheKeyEmptyPrompt(t *testing.T) {
	_, err := Request{Model: "m", Prompt: "   "}.CacheKey()
	assert.ErrorIs(t, err, rcerrors.ErrEmptyPrompt)
}
