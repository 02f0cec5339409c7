// Package overlay writes member data onto blank permit templates. Text is drawn
// onto transparent per-page surfaces that are merged over the source pages.
package overlay

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo/mutable"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
)

// Surface is a transparent drawing layer sized to one source page.
type Surface interface {
	DrawString(x, y float64, text string) error
}

// Renderer draws single strings, handling right-to-left scripts for backends
// that lay glyphs out left-to-right only.
type Renderer struct{}

// Draw writes text at (x, y). Blank text is a no-op. When rtl is set and the
// text holds any non-ASCII rune, its characters are reversed into visual order.
// A failed draw is retried once with the original text.
func (Renderer) Draw(s Surface, x, y float64, text string, rtl bool) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	visual := text
	if rtl && hasNonASCII(text) {
		visual = VisualOrder(text)
	}

	err := s.DrawString(x, y, visual)
	if err == nil {
		return nil
	}
	if visual == text {
		return docerrors.Wrap(docerrors.ErrorTypeDrawing, "draw failed", err).
			WithContext(fmt.Sprintf("(%.1f, %.1f)", x, y))
	}

	if retryErr := s.DrawString(x, y, text); retryErr != nil {
		return docerrors.Wrap(docerrors.ErrorTypeDrawing, "draw failed after retry without reordering", retryErr).
			WithContext(fmt.Sprintf("(%.1f, %.1f)", x, y))
	}
	return nil
}

// VisualOrder reverses the runes of s.
func VisualOrder(s string) string {
	runes := []rune(s)
	mutable.Reverse(runes)
	return string(runes)
}

func hasNonASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}
