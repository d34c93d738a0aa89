// Package preview renders outcome and summary markdown for the terminal.
package preview

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/povtrack/internal/log"
)

// Renderer renders markdown at a fixed wrap width. Glamour renderers are
// expensive to build, so one is cached per width.
type Renderer struct {
	mu    sync.Mutex
	width int
	inner *glamour.TermRenderer
}

// NewRenderer creates a renderer wrapping at the given width.
func NewRenderer(width int) *Renderer {
	return &Renderer{width: normalizeWidth(width)}
}

// SetWidth updates the wrap width, invalidating the cached glamour renderer.
func (r *Renderer) SetWidth(width int) {
	width = normalizeWidth(width)
	r.mu.Lock()
	defer r.mu.Unlock()
	if width != r.width {
		r.width = width
		r.inner = nil
	}
}

// Render renders markdown to styled terminal output. On glamour failure the
// raw text is word-wrapped instead so content is never lost.
func (r *Renderer) Render(markdown string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inner == nil {
		inner, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			log.ErrorErr(log.CatUI, "Failed to build markdown renderer", err)
			return wordwrap.String(markdown, r.width)
		}
		r.inner = inner
	}

	out, err := r.inner.Render(markdown)
	if err != nil {
		log.ErrorErr(log.CatUI, "Markdown render failed", err)
		return wordwrap.String(markdown, r.width)
	}
	return strings.TrimRight(out, "\n")
}

func normalizeWidth(width int) int {
	if width < 20 {
		return 20
	}
	return width
}
