package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-studio-server/modules/common/storage"
)

func testRecord(id string, timestamp int64) Record {
	return Record{
		ID:                id,
		Timestamp:         timestamp,
		Prompt:            "a cat wearing a hat",
		GeneratedImageURL: "data:image/jpeg;base64," + strings.Repeat("A", 200),
	}
}

// recordSize - 테스트 레코드 하나의 직렬화 크기
func recordSize(t *testing.T) int {
	t.Helper()
	data, err := json.Marshal([]Record{testRecord("x", 1)})
	require.NoError(t, err)
	empty, err := json.Marshal([]Record{})
	require.NoError(t, err)
	return len(data) - len(empty)
}

func TestAddRespectsCap(t *testing.T) {
	store := NewStore(storage.NewMemory(0))
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		persisted, err := store.Add(ctx, "slot", testRecord(fmt.Sprintf("r%d", i), int64(i)), 20)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(persisted), 20)
	}

	persisted, err := store.Load(ctx, "slot")
	require.NoError(t, err)
	require.Len(t, persisted, 20)
	// 최신이 맨 앞, 가장 오래된 것부터 탈락
	assert.Equal(t, "r29", persisted[0].ID)
	assert.Equal(t, "r10", persisted[19].ID)
}

func TestSaveEvictsOldestUnderQuota(t *testing.T) {
	size := recordSize(t)
	// 레코드 2개는 들어가고 3개는 안 들어가는 쿼터
	adapter := storage.NewMemory(size*2 + 100)
	store := NewStore(adapter)
	ctx := context.Background()

	records := []Record{
		testRecord("c", 3),
		testRecord("b", 2),
		testRecord("a", 1),
	}

	persisted, err := store.Save(ctx, "slot", records)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, "c", persisted[0].ID)
	assert.Equal(t, "b", persisted[1].ID)

	// 저장소에도 같은 내용이 있어야 함
	value, ok, err := adapter.Get(ctx, "slot")
	require.NoError(t, err)
	require.True(t, ok)
	var stored []Record
	require.NoError(t, json.Unmarshal([]byte(value), &stored))
	require.Len(t, stored, 2)
}

func TestCapThreeScenario(t *testing.T) {
	size := recordSize(t)
	adapter := storage.NewMemory(size*3 + 100)
	store := NewStore(adapter)
	ctx := context.Background()

	for i, id := range []string{"A", "B", "C", "D"} {
		_, err := store.Add(ctx, "slot", testRecord(id, int64(i+1)), 3)
		require.NoError(t, err)
	}

	persisted, err := store.Load(ctx, "slot")
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	assert.Equal(t, "D", persisted[0].ID)
	assert.Equal(t, "C", persisted[1].ID)
	assert.Equal(t, "B", persisted[2].ID)
}

func TestAddRollsBackOnStorageFull(t *testing.T) {
	// 빈 리스트조차 저장할 수 없는 저장소
	failing := &failingAdapter{err: storage.ErrQuotaExceeded}
	store := NewStore(failing)
	ctx := context.Background()

	// 미러를 기존 상태로 채워둔다
	store.mirror["slot"] = []Record{testRecord("keep", 1)}

	_, err := store.Add(ctx, "slot", testRecord("ghost", 2), 20)
	require.ErrorIs(t, err, ErrStorageFull)

	// ghost 레코드가 미러에 남으면 안 된다 (UI와 디스크의 불일치 방지)
	require.Len(t, store.mirror["slot"], 1)
	assert.Equal(t, "keep", store.mirror["slot"][0].ID)
}

func TestSaveHardErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewStore(&failingAdapter{err: boom})

	_, err := store.Save(context.Background(), "slot", []Record{testRecord("a", 1)})
	require.ErrorIs(t, err, boom)
}

func TestFitToCapacityMonotonic(t *testing.T) {
	records := []Record{
		testRecord("d", 4),
		testRecord("c", 3),
		testRecord("b", 2),
		testRecord("a", 1),
	}

	// 2개까지만 허용하는 predicate
	fitted := FitToCapacity(records, func(prefix []Record) bool {
		return len(prefix) <= 2
	})
	require.Len(t, fitted, 2)
	assert.Equal(t, "d", fitted[0].ID)
	assert.Equal(t, "c", fitted[1].ID)

	// 빈 리스트조차 거부하면 nil
	fitted = FitToCapacity(records, func([]Record) bool { return false })
	assert.Nil(t, fitted)

	// 전부 허용하면 전부
	fitted = FitToCapacity(records, func([]Record) bool { return true })
	assert.Len(t, fitted, 4)
}

func TestMergeDedupByID(t *testing.T) {
	store := NewStore(storage.NewMemory(0))
	ctx := context.Background()

	_, err := store.Add(ctx, "slot", testRecord("x", 10), 50)
	require.NoError(t, err)

	// 같은 id, 다른 내용 - 기존이 이긴다
	incoming := testRecord("x", 99)
	incoming.Prompt = "something else entirely"

	persisted, added, err := store.Merge(ctx, "slot", []Record{incoming}, 50, DedupByID)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	require.Len(t, persisted, 1)
	assert.Equal(t, int64(10), persisted[0].Timestamp)
	assert.Equal(t, "a cat wearing a hat", persisted[0].Prompt)
}

func TestMergeDedupByPrimaryImage(t *testing.T) {
	store := NewStore(storage.NewMemory(0))
	ctx := context.Background()

	existing := testRecord("a", 10)
	_, err := store.Add(ctx, "slot", existing, 50)
	require.NoError(t, err)

	// 다른 id지만 같은 대표 이미지 - content 기준으로는 중복
	duplicate := testRecord("b", 20)
	fresh := testRecord("c", 30)
	fresh.GeneratedImageURL = "data:image/jpeg;base64,DIFFERENT"

	persisted, added, err := store.Merge(ctx, "slot", []Record{duplicate, fresh}, 50, DedupByPrimaryImage)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, persisted, 2)
	assert.Equal(t, "c", persisted[0].ID) // timestamp 내림차순
	assert.Equal(t, "a", persisted[1].ID)
}

func TestMergeSortsByTimestampAndCaps(t *testing.T) {
	store := NewStore(storage.NewMemory(0))
	ctx := context.Background()

	_, err := store.Save(ctx, "slot", []Record{testRecord("old", 5), testRecord("older", 1)})
	require.NoError(t, err)

	incoming := []Record{testRecord("newest", 100), testRecord("mid", 3)}
	persisted, added, err := store.Merge(ctx, "slot", incoming, 3, DedupByID)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	require.Len(t, persisted, 3)
	assert.Equal(t, []string{"newest", "old", "mid"},
		[]string{persisted[0].ID, persisted[1].ID, persisted[2].ID})
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore(storage.NewMemory(0))
	ctx := context.Background()

	original := []Record{
		testRecord("r1", 3),
		testRecord("r2", 2),
		testRecord("r3", 1),
	}
	_, err := store.Save(ctx, "slot", original)
	require.NoError(t, err)

	// export
	exported, err := json.Marshal(original)
	require.NoError(t, err)

	// 빈 슬롯에 재import
	parsed, err := ParseImport(exported, "id")
	require.NoError(t, err)

	store2 := NewStore(storage.NewMemory(0))
	persisted, added, err := store2.Merge(ctx, "empty", parsed, 50, DedupByID)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	ids := make([]string, len(persisted))
	for i, record := range persisted {
		ids[i] = record.ID
	}
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, ids)
}

func TestParseImportRejectsMalformed(t *testing.T) {
	_, err := ParseImport([]byte(`{"not":"an array"}`), "id")
	assert.ErrorIs(t, err, ErrInvalidImport)

	_, err = ParseImport([]byte(`[{"timestamp":1}]`), "id")
	assert.ErrorIs(t, err, ErrInvalidImport)

	_, err = ParseImport([]byte(`[{"id":"a","finalPrompt":"p"}]`), "id", "finalPrompt")
	assert.NoError(t, err)
}

func TestDeleteAndClear(t *testing.T) {
	store := NewStore(storage.NewMemory(0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Add(ctx, "slot", testRecord(fmt.Sprintf("r%d", i), int64(i)), 20)
		require.NoError(t, err)
	}

	persisted, err := store.Delete(ctx, "slot", "r1")
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	for _, record := range persisted {
		assert.NotEqual(t, "r1", record.ID)
	}

	require.NoError(t, store.Clear(ctx, "slot"))
	persisted, err = store.Load(ctx, "slot")
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

// failingAdapter - 모든 호출이 실패하는 어댑터
type failingAdapter struct {
	err error
}

func (f *failingAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, f.err
}

func (f *failingAdapter) Set(ctx context.Context, key, value string) error {
	return f.err
}

func (f *failingAdapter) Remove(ctx context.Context, key string) error {
	return f.err
}
