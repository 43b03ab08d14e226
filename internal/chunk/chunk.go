// Package chunk delivers oversized responses within the gateway's message
// size limit, with a one-shot file fallback.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/plumchat/sage-bot/internal/irisfast"
)

// Outbound is the sending side of the gateway.
type Outbound interface {
	SendText(ctx context.Context, room, text string) error
	SendFile(ctx context.Context, room string, data []byte, name, caption string) error
}

const DefaultLimit = 4000

// Split cuts text into consecutive slices of at most limit bytes each,
// never cutting a UTF-8 sequence in half. Concatenating the slices
// reconstructs the input exactly.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(text) <= limit {
		return []string{text}
	}
	parts := make([]string, 0, (len(text)+limit-1)/limit)
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// Not text at all; cut at the limit to guarantee progress.
			cut = limit
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return append(parts, text)
}

// Chunker sends a response as one or more text messages. When the gateway
// rejects a slice as too large or malformed, the entire original text is sent
// once as an attached document instead; that fallback is never pre-emptive
// and is not retried.
type Chunker struct {
	out      Outbound
	limit    int
	fileName string
	caption  string
}

func New(out Outbound, limit int, fileName, caption string) *Chunker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if fileName == "" {
		fileName = "response.txt"
	}
	return &Chunker{out: out, limit: limit, fileName: fileName, caption: caption}
}

func (c *Chunker) Deliver(ctx context.Context, room, text string) error {
	for _, part := range Split(text, c.limit) {
		err := c.out.SendText(ctx, room, part)
		if err == nil {
			continue
		}
		if !errors.Is(err, irisfast.ErrPayloadRejected) {
			return err
		}
		if ferr := c.out.SendFile(ctx, room, []byte(text), c.fileName, c.caption); ferr != nil {
			return fmt.Errorf("file fallback failed: %w", ferr)
		}
		return nil
	}
	return nil
}
