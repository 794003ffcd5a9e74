package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubMediaStore_GenerateUploadURL(t *testing.T) {
	store := NewStubMediaStore()

	url, expiresAt, err := store.GenerateUploadURL(context.Background(), "products/p1/front.png", "image/png", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "https://media.example.com/upload/products/p1/front.png")
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	_, _, err = store.GenerateUploadURL(context.Background(), "", "image/png", time.Hour)
	assert.Error(t, err)
}

func TestStubMediaStore_ObjectURL(t *testing.T) {
	store := &StubMediaStore{BaseURL: "https://cdn.local/"}
	assert.Equal(t, "https://cdn.local/products/p1/front.png", store.ObjectURL("/products/p1/front.png"))
}
