package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenter_PushAndRecent(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	first := c.Info("preload started")
	second := c.Success("preload finished")

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	recent := c.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, LevelInfo, recent[0].Level)
	assert.Equal(t, "preload started", recent[0].Message)
	assert.Equal(t, LevelSuccess, recent[1].Level)
}

func TestCenter_ExpiryOnRead(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := NewCenter(WithClock(func() time.Time { return now }))

	c.Error("something broke")
	require.Len(t, c.Recent(), 1)

	now = now.Add(DefaultTTL + time.Second)
	assert.Empty(t, c.Recent())
}

func TestCenter_Dismiss(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	toast := c.Info("dismiss me")
	c.Info("keep me")

	assert.True(t, c.Dismiss(toast.ID))
	assert.False(t, c.Dismiss(toast.ID))

	recent := c.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "keep me", recent[0].Message)
}

func TestCenter_Bounded(t *testing.T) {
	t.Parallel()

	c := NewCenter(WithTTL(time.Hour))
	for i := 0; i < maxToasts+10; i++ {
		c.Info(fmt.Sprintf("toast %d", i))
	}

	recent := c.Recent()
	require.Len(t, recent, maxToasts)
	assert.Equal(t, fmt.Sprintf("toast %d", maxToasts+9), recent[len(recent)-1].Message)
}
