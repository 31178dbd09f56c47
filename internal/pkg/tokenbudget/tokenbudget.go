// Package tokenbudget trims document text so that prompts stay inside the
// model's context window.
package tokenbudget

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

const encodingName = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(encodingName)
		if encErr != nil {
			encErr = fmt.Errorf("load %s encoding failed: %w", encodingName, encErr)
		}
	})
	return enc, encErr
}

// Budget caps text at MaxTokens. A non-positive MaxTokens disables the cap.
type Budget struct {
	MaxTokens int
}

func New(maxTokens int) *Budget {
	return &Budget{MaxTokens: maxTokens}
}

func (b *Budget) Count(text string) (int, error) {
	e, err := encoding()
	if err != nil {
		return 0, err
	}
	return len(e.Encode(text, nil, nil)), nil
}

// Truncate returns text unchanged when it fits; otherwise it keeps the first
// MaxTokens tokens.
func (b *Budget) Truncate(text string) (string, error) {
	if b == nil || b.MaxTokens <= 0 || text == "" {
		return text, nil
	}
	e, err := encoding()
	if err != nil {
		return "", err
	}
	tokens := e.Encode(text, nil, nil)
	if len(tokens) <= b.MaxTokens {
		return text, nil
	}
	return e.Decode(tokens[:b.MaxTokens]), nil
}
