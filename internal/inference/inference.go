// Package inference defines the hosted-model feedback contract.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("inference not configured")
	// ErrEmptyContent is returned when a block list carries no blocks.
	ErrEmptyContent = errors.New("inference: empty content")
)

// Client requests feedback on a stored document.
type Client interface {
	Feedback(ctx context.Context, documentPath, instruction string) (*Response, error)
}

// Response is the model reply. A nil *Response means no reply.
type Response struct {
	Message Message `json:"message"`
}

// Message is a single chat message.
type Message struct {
	Role    string  `json:"role,omitempty"`
	Content Content `json:"content"`
}

// ContentKind tags the Content variant.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentBlocks
)

// Block is one element of a block-list content.
type Block struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Content is either a plain string or a list of text blocks.
type Content struct {
	Kind   ContentKind
	Text   string
	Blocks []Block
}

// TextContent builds string content.
func TextContent(s string) Content {
	return Content{Kind: ContentText, Text: s}
}

// BlockContent builds block-list content.
func BlockContent(texts ...string) Content {
	blocks := make([]Block, 0, len(texts))
	for _, t := range texts {
		blocks = append(blocks, Block{Type: "text", Text: t})
	}
	return Content{Kind: ContentBlocks, Blocks: blocks}
}

// Normalize returns the string form: the text itself, or the first block's text.
func (c Content) Normalize() (string, error) {
	switch c.Kind {
	case ContentText:
		return c.Text, nil
	case ContentBlocks:
		if len(c.Blocks) == 0 {
			return "", ErrEmptyContent
		}
		return c.Blocks[0].Text, nil
	default:
		return "", fmt.Errorf("inference: unknown content kind %d", c.Kind)
	}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("inference: empty content json")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("inference: decode text content: %w", err)
		}
		*c = TextContent(s)
		return nil
	case '[':
		var blocks []Block
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return fmt.Errorf("inference: decode block content: %w", err)
		}
		*c = Content{Kind: ContentBlocks, Blocks: blocks}
		return nil
	default:
		return fmt.Errorf("inference: content must be a string or an array, got %s", string(trimmed[:1]))
	}
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Kind == ContentBlocks {
		blocks := c.Blocks
		if blocks == nil {
			blocks = []Block{}
		}
		return json.Marshal(blocks)
	}
	return json.Marshal(c.Text)
}

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Feedback returns ErrNotImplemented.
func (PlaceholderClient) Feedback(ctx context.Context, documentPath, instruction string) (*Response, error) {
	return nil, ErrNotImplemented
}

// StaticClient replies with a fixed response. Used by the CLI dry-run mode.
type StaticClient struct {
	Reply *Response
	Err   error
}

func (s StaticClient) Feedback(ctx context.Context, documentPath, instruction string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Reply, s.Err
}
