package testing

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dfproto/protogen/internal/codegen/meta"
)

// LoggedArtifact is one call recorded by an ArtifactRecorder.
type LoggedArtifact struct {
	TypeName string
	Artifact meta.Artifact
}

// ArtifactRecorder is an ArtifactLogger that keeps every artifact it is
// given.
type ArtifactRecorder struct {
	mu     sync.Mutex
	logged []LoggedArtifact
}

func (r *ArtifactRecorder) Log(typeName string, a meta.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logged = append(r.logged, LoggedArtifact{TypeName: typeName, Artifact: a})
}

// Logged returns the recorded artifacts in call order.
func (r *ArtifactRecorder) Logged() []LoggedArtifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LoggedArtifact(nil), r.logged...)
}

// Names returns the file names of the recorded artifacts.
func (r *ArtifactRecorder) Names() []string {
	var out []string
	for _, l := range r.Logged() {
		out = append(out, l.Artifact.Name)
	}
	return out
}

// WriteFile creates dir/name with content and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
