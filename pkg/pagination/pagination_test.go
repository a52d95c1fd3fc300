package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 5, 4, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = ParseCursor("%%%")
	require.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestBuildPage(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{uuid.New(), base}, {uuid.New(), base.Add(-time.Minute)}, {uuid.New(), base.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := BuildPage(rows, 2, cursorOf)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, next.ID)

	last := BuildPage(rows[:2], 2, cursorOf)
	assert.Empty(t, last.NextCursor)
}
