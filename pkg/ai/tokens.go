package ai

import (
	"sync"
	"unicode/utf8"

	"github.com/slidescribe/backend/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEncoding is the tiktoken encoding used for request size estimates.
const TokenEncoding = "o200k_base"

// ImageTokens is the rough token allowance for one attached image.
const ImageTokens = 800

// TokenCounter returns the number of tokens in s.
type TokenCounter func(s string) int

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// NewTokenCounter returns a counter backed by the o200k_base encoding. When the
// encoding cannot be loaded it falls back to four characters per token.
func NewTokenCounter() TokenCounter {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(TokenEncoding)
		if err != nil {
			logger.Warn("[AI] Token encoding unavailable, estimating", "encoding", TokenEncoding, "err", err)
			return
		}
		enc = e
	})

	if enc == nil {
		return EstimateTokens
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}
}

// EstimateTokens approximates the token count of s as one token per four runes.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}
