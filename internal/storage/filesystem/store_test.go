package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicemail/backend/internal/storage"
)

func TestStore_Put(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "/blobs")
	require.NoError(t, err)

	data := []byte("fake-audio")
	obj, err := store.Put(context.Background(), "voicemails/v.webm", data, storage.PutOptions{ContentType: "audio/webm"})
	require.NoError(t, err)

	assert.Equal(t, "voicemails/v.webm", obj.Key)
	assert.Equal(t, "/blobs/voicemails/v.webm", obj.URL)
	assert.Equal(t, "audio/webm", obj.ContentType)

	written, err := os.ReadFile(filepath.Join(dir, "voicemails", "v.webm"))
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestStore_PutRejectsBadKeys(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	for _, key := range []string{"", "/abs.webm", "../escape.webm", "a/../b.webm", "a//b.webm"} {
		_, err := store.Put(context.Background(), key, []byte("x"), storage.PutOptions{})
		assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
	}
}

func TestStore_PutCancelledContext(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "voicemails/v.webm", []byte("x"), storage.PutOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Health(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "/blobs")
	require.NoError(t, err)
	assert.NoError(t, store.Health())
	assert.Equal(t, dir, store.BasePath())

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, store.Health())
}
