package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	val, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), val)
}

func TestMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c := New()

	val, hit, err := c.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, val)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteMissingKey(t *testing.T) {
	ctx := context.Background()
	c := New()

	assert.NoError(t, c.Delete(ctx, "ghost"))
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := New()

	src := []byte("original")
	require.NoError(t, c.Set(ctx, "k", src, 0))
	src[0] = 'X'

	val, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("original"), val)

	val[0] = 'Y'
	again, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
