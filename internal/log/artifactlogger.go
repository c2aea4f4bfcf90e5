package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dfproto/protogen/internal/codegen/meta"
)

// ArtifactLogger traces generated files.
type ArtifactLogger interface {
	Log(typeName string, a meta.Artifact)
}

type artifactLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewArtifact returns an ArtifactLogger writing to w. A nil w discards
// everything.
func NewArtifact(w io.Writer) ArtifactLogger {
	return &artifactLogger{w: w}
}

// Log writes one header line with timestamp, type and file followed by
// the file content, indented by a tab.
func (l *artifactLogger) Log(typeName string, a meta.Artifact) {
	if l.w == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s %s: %d bytes\n",
		time.Now().Format("2006/01/02 15:04:05"),
		typeName,
		a.Kind,
		a.Name,
		len(a.Content))
	for _, line := range strings.SplitAfter(a.Content, "\n") {
		if line == "" {
			continue
		}
		sb.WriteByte('\t')
		sb.WriteString(line)
	}
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}

	l.mu.Lock()
	_, _ = io.WriteString(l.w, sb.String())
	l.mu.Unlock()
}
