package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = New(client, Config{})
	assert.Error(t, err)

	b, err := New(client, Config{Bucket: "b", Prefix: "/checkpoints/"})
	require.NoError(t, err)
	assert.Equal(t, "gs://b/checkpoints/shop/links/2020.json", b.URI("shop/links/2020.json"))
}

func TestNames(t *testing.T) {
	t.Parallel()

	b := &Backend{bucket: "b", prefix: "cp"}
	assert.Equal(t, "cp/shop/links/", b.fullName("shop/links/"))
	assert.Equal(t, "cp/shop/links/2020.json", b.fullName("shop/links/2020.json"))
	assert.Equal(t, "shop/links/2020.json", b.relName("cp/shop/links/2020.json"))

	bare := &Backend{bucket: "b"}
	assert.Equal(t, "shop/", bare.fullName("shop/"))
	assert.Equal(t, "shop/x.json", bare.relName("shop/x.json"))
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "application/json", contentType("a/b.json"))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("pages/2020/x.txt"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
