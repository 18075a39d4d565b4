package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSize(t *testing.T) {
	assert.Equal(t, DefaultLimit, Params{}.PageSize())
	assert.Equal(t, 10, Params{Limit: 10}.PageSize())
	assert.Equal(t, MaxLimit, Params{Limit: MaxLimit + 1}.PageSize())
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 123, time.UTC), ID: uuid.New()}
	got, err := Decode(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.ID, got.ID)

	empty, err := Decode("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	for _, bad := range []string{"%%%", "bm9waXBl", Cursor{}.Encode()[:4]} {
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}
}

func TestTrim(t *testing.T) {
	key := func(n int) Cursor { return Cursor{CreatedAt: time.Unix(int64(n), 0)} }

	rows, next := Trim([]int{1, 2}, 2, key)
	assert.Equal(t, []int{1, 2}, rows)
	assert.Empty(t, next)

	rows, next = Trim([]int{3, 2, 1}, 2, key)
	assert.Equal(t, []int{3, 2}, rows)
	c, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.CreatedAt.Unix())
}
