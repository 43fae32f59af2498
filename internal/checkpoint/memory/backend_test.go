package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

func TestBackendReadWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New()

	_, err := b.Read(ctx, "a/b.json")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)

	payload := []byte(`{"x":1}`)
	require.NoError(t, b.Write(ctx, "a/b.json", payload))
	payload[0] = 'X'

	got, err := b.Read(ctx, "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(got), "stored bytes must not alias the caller's slice")

	ok, err := b.Exists(ctx, "a/b.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, b.Writes())
}

func TestBackendListAndDeletePrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := New()
	for _, name := range []string{"t/links/2020.json", "t/links/2019.json", "t/selected/2019.json", "u/links/2019.json"} {
		require.NoError(t, b.Write(ctx, name, []byte("{}")))
	}

	names, err := b.List(ctx, "t/links/")
	require.NoError(t, err)
	assert.Equal(t, []string{"t/links/2019.json", "t/links/2020.json"}, names)

	require.NoError(t, b.DeletePrefix(ctx, "t/"))
	assert.Len(t, b.Snapshot(), 1)
}
