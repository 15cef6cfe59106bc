package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicemail/backend/internal/storage"
)

func TestMemoryStore_Put(t *testing.T) {
	store := NewStore()

	data := []byte("fake-audio")
	obj, err := store.Put(context.Background(), "voicemails/v.webm", data, storage.PutOptions{ContentType: "audio/webm"})
	require.NoError(t, err)

	assert.Equal(t, "memory://voicemails/v.webm", obj.URL)
	assert.Equal(t, 1, store.Len())

	stored, contentType, ok := store.Object("voicemails/v.webm")
	require.True(t, ok)
	assert.Equal(t, data, stored)
	assert.Equal(t, "audio/webm", contentType)

	// Stored bytes are a copy, mutating the input must not affect them
	data[0] = 'X'
	stored, _, _ = store.Object("voicemails/v.webm")
	assert.Equal(t, byte('f'), stored[0])
}

func TestMemoryStore_PutRejectsBadKeys(t *testing.T) {
	store := NewStore()

	for _, key := range []string{"", "/abs.webm", "a/../b.webm"} {
		_, err := store.Put(context.Background(), key, []byte("x"), storage.PutOptions{})
		assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
	}
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_MissingObject(t *testing.T) {
	store := NewStore()

	_, _, ok := store.Object("nope")
	assert.False(t, ok)
	assert.NoError(t, store.Health())
}
