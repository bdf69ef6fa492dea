//go:build integration

package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/mars-shop.git/internal/redisx/redistest"
)

func TestDedup(t *testing.T) {
	rdb := redistest.New(t)
	d := &Dedup{RDB: rdb, Service: "notifier"}
	ctx := context.Background()

	first, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	assert.Equal(t, int64(1), rdb.Exists(ctx, "dedup:notifier:evt-1").Val())
	assert.Greater(t, rdb.TTL(ctx, "dedup:notifier:evt-1").Val(), time.Hour)
}
