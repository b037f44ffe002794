package usage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-studio-server/modules/common/storage"
)

func newTestMeter(t *testing.T) (*Meter, storage.Adapter) {
	t.Helper()
	mem := storage.NewMemory(1 << 20)
	return NewMeter(mem, "dailyUsage", 25, 5), mem
}

func TestConsumeUntilLimit(t *testing.T) {
	m, _ := newTestMeter(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, m.ConsumeImage(ctx))
	}

	err := m.ConsumeImage(ctx)
	assert.ErrorIs(t, err, ErrDailyLimit)

	remaining, err := m.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestVideoCostsFive(t *testing.T) {
	m, _ := newTestMeter(t)
	ctx := context.Background()

	require.NoError(t, m.ConsumeVideo(ctx))

	remaining, err := m.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, remaining)
}

func TestVideoRejectedWhenInsufficient(t *testing.T) {
	m, _ := newTestMeter(t)
	ctx := context.Background()

	// 22 사용 -> 남은 3 < 영상 비용 5
	require.NoError(t, m.Consume(ctx, 22))

	err := m.ConsumeVideo(ctx)
	assert.ErrorIs(t, err, ErrDailyLimit)

	// 이미지 1회는 여전히 가능
	assert.NoError(t, m.ConsumeImage(ctx))
}

func TestDateRolloverResetsCount(t *testing.T) {
	m, mem := newTestMeter(t)
	ctx := context.Background()

	// 어제 날짜로 가득 찬 레코드를 직접 심는다
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	data, err := json.Marshal(record{Count: 25, Date: yesterday})
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, "dailyUsage", string(data)))

	remaining, err := m.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, remaining)

	assert.NoError(t, m.ConsumeImage(ctx))
}

func TestCorruptRecordResets(t *testing.T) {
	m, mem := newTestMeter(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "dailyUsage", "not-json{{"))

	remaining, err := m.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, remaining)
}

func TestRefundRestoresBudget(t *testing.T) {
	m, _ := newTestMeter(t)
	ctx := context.Background()

	require.NoError(t, m.ConsumeVideo(ctx))
	require.NoError(t, m.Refund(ctx, 5))

	remaining, err := m.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, remaining)
}

func TestRefundNeverGoesNegative(t *testing.T) {
	m, _ := newTestMeter(t)
	ctx := context.Background()

	require.NoError(t, m.Refund(ctx, 10))

	remaining, err := m.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, remaining)
}
