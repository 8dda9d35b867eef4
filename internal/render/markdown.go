package render

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Detail views wrap markdown at this width so description and comment
// bodies line up with the field rows above them.
const markdownWrap = 80

var (
	mdOnce     sync.Once
	mdRenderer *glamour.TermRenderer
)

// ColorsEnabled reports whether styled terminal output should be used.
// NO_COLOR with any value disables it, as does TERM=dumb.
func ColorsEnabled() bool {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// RenderMarkdown formats an issue description or comment body for the
// terminal. One glamour renderer is built lazily and shared: a single
// detail view renders the description plus every comment body, and style
// detection is too expensive to repeat per block. With colors disabled the
// text passes through untouched so piped output stays grep-friendly.
func RenderMarkdown(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	if !ColorsEnabled() {
		return content, nil
	}

	mdOnce.Do(func() {
		mdRenderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(markdownWrap),
			glamour.WithEmoji(),
		)
	})
	if mdRenderer == nil {
		return content, nil
	}

	out, err := mdRenderer.Render(content)
	if err != nil {
		return content, err
	}
	return strings.TrimSpace(out), nil
}
