package prompt

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	previewHeadRunes = 160
	fallbackEncoding = "cl100k_base"
)

// TokenCounter estimates the number of tokens in a text.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a counter for model, falling back to cl100k_base
// for models tiktoken does not know.
func NewTiktokenCounter(model string) (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// MessagePreview summarizes one rendered message.
type MessagePreview struct {
	Role   string `json:"role"`
	Chars  int    `json:"chars"`
	Tokens int    `json:"tokens,omitempty"`
	Head   string `json:"head"`
}

// Preview summarizes a rendered conversation before it is sent.
type Preview struct {
	Messages    []MessagePreview `json:"messages"`
	TotalChars  int              `json:"total_chars"`
	TotalTokens int              `json:"total_tokens,omitempty"`
	Estimated   bool             `json:"tokens_estimated"`
}

// BuildPreview summarizes messages. counter may be nil, in which case no
// token estimate is made.
func BuildPreview(messages []Message, counter TokenCounter) Preview {
	p := Preview{Messages: make([]MessagePreview, 0, len(messages)), Estimated: counter != nil}
	for _, m := range messages {
		mp := MessagePreview{
			Role:  m.Role,
			Chars: utf8.RuneCountInString(m.Content),
			Head:  head(m.Content, previewHeadRunes),
		}
		if counter != nil {
			mp.Tokens = counter.Count(m.Content)
		}
		p.TotalChars += mp.Chars
		p.TotalTokens += mp.Tokens
		p.Messages = append(p.Messages, mp)
	}
	return p
}

func head(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
