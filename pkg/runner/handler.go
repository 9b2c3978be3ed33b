package runner

import (
	"context"
	"path"
	"strings"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// IOHandler defines how a run is presented.
// This allows switching between Text (CLI) and JSON (Structured) modes.
type IOHandler interface {
	// Status presents a progress message (e.g. "generating").
	Status(ctx context.Context, msg string) error

	// Artifact presents one revealed artifact in full.
	Artifact(ctx context.Context, name, content string, opaque bool) error

	// Result presents the final snapshot of the run.
	Result(ctx context.Context, snap *domain.Snapshot) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for terminal rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

var fenceLanguages = map[string]string{
	".html": "html",
	".htm":  "html",
	".css":  "css",
	".js":   "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".json": "json",
	".svg":  "xml",
	".xml":  "xml",
	".py":   "python",
	".go":   "go",
}

// Fence wraps an artifact in a markdown code block tagged with the language
// implied by its extension. Markdown artifacts are returned unchanged.
func Fence(name, content string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".md" || ext == ".markdown" {
		return content
	}
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	var b strings.Builder
	b.WriteString(fence)
	b.WriteString(fenceLanguages[ext])
	b.WriteByte('\n')
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
	return b.String()
}
