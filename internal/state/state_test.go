package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionBlob struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email"`
}

func TestStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	store.Save(BlobSession, sessionBlob{Authenticated: true, Email: "a@b.c"})

	var got sessionBlob
	require.True(t, store.Load(BlobSession, &got))
	assert.True(t, got.Authenticated)
	assert.Equal(t, "a@b.c", got.Email)
}

func TestStore_AbsentBlobKeepsDefaults(t *testing.T) {
	store := New(t.TempDir(), nil)

	got := sessionBlob{Email: "default"}
	assert.False(t, store.Load(BlobSession, &got))
	assert.Equal(t, "default", got.Email, "defaults must survive a first run")
}

func TestStore_NoStorageAvailable(t *testing.T) {
	// An empty directory disables persistence entirely; nothing may panic
	// or error.
	store := New("", nil)

	store.Save(BlobReference, map[string]string{"k": "v"})
	store.Delete(BlobReference)

	var got map[string]string
	assert.False(t, store.Load(BlobReference, &got))
	assert.Nil(t, got)
}

func TestStore_CorruptBlobIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BlobSession+".json"), []byte("{not json"), 0o600))

	store := New(dir, nil)
	got := sessionBlob{Email: "default"}
	assert.False(t, store.Load(BlobSession, &got))
	assert.Equal(t, "default", got.Email)
}

func TestStore_IndependentBlobs(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	store.Save(BlobSession, sessionBlob{Email: "a@b.c"})
	store.Save(BlobReference, map[string]string{"plumbing": "Plumbing"})

	store.Delete(BlobSession)

	var ref map[string]string
	require.True(t, store.Load(BlobReference, &ref), "reference blob outlives the session blob")
	assert.Equal(t, "Plumbing", ref["plumbing"])

	var sess sessionBlob
	assert.False(t, store.Load(BlobSession, &sess))
}
