package ussd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/storage"
)

func testPayload(sessionID, phone, text string) Payload {
	return &payload{data: &payloadInternal{
		SessionID:    sessionID,
		PhoneNumber:  phone,
		Text:         text,
		CurrentInput: lastFragment(text),
	}}
}

func TestLogSaverPersistsRows(t *testing.T) {
	db, err := storage.Open(&storage.Options{Dialect: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ls, err := NewLogSaver(ctx, db, zap.NewNop().Sugar(), true, "")
	require.NoError(t, err)

	ls.Push(ctx, testPayload("sess-1", "+256700000000", "1*Ann"), StateMainMenu, ContinueReply("Enter your full name:"), true)
	ls.Push(ctx, testPayload("sess-1", "+256700000000", "1*Ann*Kampala"), StateRegisterName, EndReply("done"), false)

	assert.Eventually(t, func() bool {
		var count int64
		if err := db.Model(&SessionLog{}).Count(&count).Error; err != nil {
			return false
		}
		return count == 2
	}, 10*time.Second, 100*time.Millisecond)

	var row SessionLog
	require.NoError(t, db.Where("succeeded = ?", true).First(&row).Error)
	assert.Equal(t, "sess-1", row.SessionID)
	assert.Equal(t, "MAIN_MENU", row.State)
	assert.Equal(t, "Ann", row.UserInput)
	assert.Equal(t, "CON Enter your full name:", row.Response)
}

func TestLogSaverCustomTable(t *testing.T) {
	db, err := storage.Open(&storage.Options{Dialect: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := NewLogSaver(ctx, db, zap.NewNop().Sugar(), true, "ussd_logs_a")
	require.NoError(t, err)
	second, err := NewLogSaver(ctx, db, zap.NewNop().Sugar(), true, "ussd_logs_b")
	require.NoError(t, err)

	first.Push(ctx, testPayload("sess-a", "+256700000000", "1"), StateMainMenu, ContinueReply("hi"), true)
	second.Push(ctx, testPayload("sess-b", "+256700000001", "2"), StateMainMenu, ContinueReply("hi"), true)

	count := func(table string) int64 {
		var n int64
		if err := db.Table(table).Count(&n).Error; err != nil {
			return -1
		}
		return n
	}

	// Each saver writes to its own table.
	assert.Eventually(t, func() bool {
		return count("ussd_logs_a") == 1 && count("ussd_logs_b") == 1
	}, 10*time.Second, 100*time.Millisecond)
	assert.False(t, db.Migrator().HasTable(defaultSessionLogsTable))
}

func TestLogSaverDisabled(t *testing.T) {
	db, err := storage.Open(&storage.Options{Dialect: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	ctx := context.Background()
	ls, err := NewLogSaver(ctx, db, zap.NewNop().Sugar(), false, "")
	require.NoError(t, err)

	// No table is migrated and pushes are dropped.
	ls.Push(ctx, testPayload("sess-1", "+256700000000", ""), StateInitial, ContinueReply("hi"), true)
	assert.False(t, db.Migrator().HasTable(&SessionLog{}))
}

func TestLogSaverValidation(t *testing.T) {
	_, err := NewLogSaver(context.Background(), nil, zap.NewNop().Sugar(), true, "")
	assert.Error(t, err)
}
