package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"
)

// minMarkdownWidth is the narrowest wrap width handed to glamour.
const minMarkdownWidth = 24

type markdownKey struct {
	width int
	text  string
}

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
// Rendered output is memoized per width and source text when a cache is configured.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	cache    *lru.Cache[markdownKey, string]
}

// newMarkdownRenderer builds a renderer; cacheSize <= 0 disables memoization.
func newMarkdownRenderer(cacheSize int) *markdownRenderer {
	r := &markdownRenderer{}
	if cacheSize > 0 {
		if cache, err := lru.New[markdownKey, string](cacheSize); err == nil {
			r.cache = cache
		}
	}
	return r
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < minMarkdownWidth {
		wrapWidth = minMarkdownWidth
	}
	cacheKey := markdownKey{width: wrapWidth, text: markdown}
	if r.cache != nil {
		if rendered, ok := r.cache.Get(cacheKey); ok {
			return rendered
		}
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	rendered = strings.TrimRight(rendered, "\n")
	if r.cache != nil {
		r.cache.Add(cacheKey, rendered)
	}
	return rendered
}

// cached reports how many renders are memoized.
func (r *markdownRenderer) cached() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.Len()
}
