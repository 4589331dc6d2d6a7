package labeling_test

import (
	"fmt"
	"testing"
	"time"

	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// StationDefaults
// =============================================================================

func TestStationDefaults_ExpirationDate(t *testing.T) {
	defaults := app.NewStationDefaults("ZD621R", fixedClock)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), defaults.ExpirationDate())

	defaults.RememberExpiration(time.Date(2025, 6, 1, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), defaults.ExpirationDate())
}

func TestStationDefaults_Device(t *testing.T) {
	defaults := app.NewStationDefaults("ZD621R", nil)
	assert.Equal(t, "ZD621R", defaults.Device())

	defaults.SetDevice("ZT411")
	assert.Equal(t, "ZT411", defaults.Device())
	assert.False(t, defaults.ExpirationDate().IsZero())
}

// =============================================================================
// NoticeBoard
// =============================================================================

func TestNoticeBoard_NewestFirst(t *testing.T) {
	board := app.NewNoticeBoard(0)
	assert.NotNil(t, board.List())
	assert.Empty(t, board.List())

	board.Notify(labeling.Notice{Level: labeling.NoticeInfo, Message: "first"})
	board.Notify(labeling.Notice{Level: labeling.NoticeError, Message: "second"})

	list := board.List()
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.Equal(t, "first", list[1].Message)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestNoticeBoard_KeepsLatest(t *testing.T) {
	board := app.NewNoticeBoard(3)
	for i := range 5 {
		board.Notify(labeling.Notice{Message: fmt.Sprintf("notice %d", i)})
	}

	list := board.List()
	require.Len(t, list, 3)
	assert.Equal(t, "notice 4", list[0].Message)
	assert.Equal(t, "notice 2", list[2].Message)
}

func TestNoticeBoard_DefaultLimit(t *testing.T) {
	board := app.NewNoticeBoard(-1)
	for i := range 60 {
		board.Notify(labeling.Notice{Message: fmt.Sprintf("notice %d", i)})
	}
	assert.Len(t, board.List(), 50)
}
