// Package llm defines the provider-neutral surface used to ask a language model
// about a document.
package llm

import "context"

// Attachment is a file sent alongside a prompt.
type Attachment struct {
	MediaType string
	Data      []byte
}

// Completer answers a single prompt, optionally with attached files.
type Completer interface {
	Complete(ctx context.Context, prompt string, attachments ...Attachment) (string, error)
}
