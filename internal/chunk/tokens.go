package chunk

import "github.com/pkoukk/tiktoken-go"

// TokenCounter counts tokens the way the embedding model will, so
// adaptive chunk sizing can budget by tokens instead of raw bytes for
// models with tight context windows.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter using the cl100k_base encoding,
// shared by most modern embedding and chat models.
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// SizeForTokenBudget converts a token budget into an approximate
// character budget for a chunk, by sampling sample's tokens-per-char
// ratio (falling back to a conservative 4 chars/token when sample is
// too short to estimate from).
func (c *TokenCounter) SizeForTokenBudget(tokenBudget int, sample string) int {
	if sample == "" {
		return tokenBudget * 4
	}
	tokens := c.Count(sample)
	if tokens == 0 {
		return tokenBudget * 4
	}
	charsPerToken := float64(len(sample)) / float64(tokens)
	return int(float64(tokenBudget) * charsPerToken)
}
