package vibecheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverReferences_FindsImagesAcrossUserDirs(t *testing.T) {
	root := t.TempDir()
	for i, user := range []string{"1", "2"} {
		dir := filepath.Join(root, "g", "42", user, "promotion")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte{byte(i)}, 0o644))
	}
	// non-image file must be ignored
	require.NoError(t, os.WriteFile(filepath.Join(root, "g", "42", "1", "promotion", "notes.txt"), []byte("x"), 0o644))

	refs, err := discoverReferences(root, "g", "42")
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestDiscoverReferences_MissingEventDirReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	refs, err := discoverReferences(root, "g", "missing")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDiscoverReferences_CapsAtFive(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 8; i++ {
		user := string(rune('a' + i))
		dir := filepath.Join(root, "g", "42", user, "promotion")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte{byte(i)}, 0o644))
	}
	refs, err := discoverReferences(root, "g", "42")
	require.NoError(t, err)
	assert.Len(t, refs, maxReferences)
}
