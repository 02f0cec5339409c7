// Package anthropic answers license prompts with Claude models.
package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/bonbonpfw/constractbuild/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

var ErrEmptyResponse = errors.New("model returned no text")

type Client struct {
	*Config
	messages anthropic.MessageService
}

func New(token string, options ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("anthropic API key is not set")
	}

	cfg := &Config{
		token:     token,
		model:     DefaultModel,
		maxTokens: 2048,
	}

	for _, option := range options {
		option(cfg)
	}

	return &Client{
		Config:   cfg,
		messages: anthropic.NewMessageService(cfg.Options()...),
	}, nil
}

// Model returns the model requests are sent to.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, prompt string, attachments ...llm.Attachment) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(attachments)+1)

	for _, a := range attachments {
		content := base64.StdEncoding.EncodeToString(a.Data)

		switch {
		case a.MediaType == "application/pdf":
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
				Data: content,
			}))

		case strings.HasPrefix(a.MediaType, "image/"):
			blocks = append(blocks, anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
				Data:      content,
				MediaType: anthropic.Base64ImageSourceMediaType(a.MediaType),
			}))

		default:
			return "", fmt.Errorf("unsupported attachment type %q", a.MediaType)
		}
	}

	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	body := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,

		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	message, err := c.messages.New(ctx, body)

	if err != nil {
		return "", err
	}

	var content strings.Builder

	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	if content.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return content.String(), nil
}
