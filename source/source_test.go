package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	s := Static{"context_file": map[string]any{"workspace": "demo"}}

	v, err := s.Resolve(context.Background(), "context_file")
	require.NoError(t, err)
	assert.Equal(t, "demo", v.(map[string]any)["workspace"])

	_, err = s.Resolve(context.Background(), "missing")
	assert.Error(t, err)
}

func TestEnv(t *testing.T) {
	t.Setenv("STACKMESH_TEST_WORKSPACE", "demo")

	v, err := Env{}.Resolve(context.Background(), "STACKMESH_TEST_WORKSPACE")
	require.NoError(t, err)
	assert.Equal(t, "demo", v)

	_, err = Env{}.Resolve(context.Background(), "STACKMESH_TEST_UNSET")
	assert.Error(t, err)
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	doc := "workspace: demo\ncontexts:\n  - onboarding\n  - billing\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "example.yaml"), []byte(doc), 0o644))

	v, err := Dir{Root: root}.Resolve(context.Background(), "example")
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, "demo", m["workspace"])
	assert.Len(t, m["contexts"], 2)

	_, err = Dir{Root: root}.Resolve(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDir_IgnoresPathTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ctx.yaml"), []byte("workspace: demo\n"), 0o644))

	// Only the base name of the id is used; a traversal id resolves inside
	// the root or fails.
	_, err := Dir{Root: root}.Resolve(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestMux(t *testing.T) {
	mux := NewMux(Static{"fallback_id": "fb"}).
		Bind("context_file", Static{"context_file": "bound"})

	v, err := mux.Resolve(context.Background(), "context_file")
	require.NoError(t, err)
	assert.Equal(t, "bound", v)

	v, err = mux.Resolve(context.Background(), "fallback_id")
	require.NoError(t, err)
	assert.Equal(t, "fb", v)

	strict := NewMux(nil)
	_, err = strict.Resolve(context.Background(), "anything")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	c := Chain{
		Static{"a": 1},
		Static{"b": 2},
	}

	v, err := c.Resolve(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = c.Resolve(context.Background(), "c")
	assert.Error(t, err)
}
