package history

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-studio-server/modules/common/history"
	"vision-studio-server/modules/common/storage"
)

func newTestService(t *testing.T) (*Service, *history.Store, storage.Adapter) {
	t.Helper()
	mem := storage.NewMemory(1 << 20)
	store := history.NewStore(mem)
	return NewService(store, mem), store, mem
}

func mustSlot(t *testing.T, name string) Slot {
	t.Helper()
	slot, ok := resolveSlot(name)
	require.True(t, ok)
	return slot
}

func TestImportMergesByID(t *testing.T) {
	s, store, _ := newTestService(t)
	ctx := context.Background()
	slot := mustSlot(t, "generationHistory")

	_, err := store.Save(ctx, slot.Key, []history.Record{
		{ID: "a", Prompt: "existant", Timestamp: 1},
	})
	require.NoError(t, err)

	payload := `[
		{"id":"a","prompt":"doublon","timestamp":2},
		{"id":"b","prompt":"nouveau","timestamp":3}
	]`
	added, err := s.Import(ctx, slot, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	records, err := s.List(ctx, slot)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// 기존 레코드가 이긴다
	assert.Equal(t, "existant", records[1].Prompt)
}

func TestImportRejectsMissingRequiredKeys(t *testing.T) {
	s, _, _ := newTestService(t)
	slot := mustSlot(t, "vImageHistory")

	// vImageHistory는 id/finalPrompt 필수
	_, err := s.Import(context.Background(), slot, []byte(`[{"id":"x"}]`))
	assert.ErrorIs(t, err, history.ErrInvalidImport)
}

func TestExportEmptySlotReturnsNil(t *testing.T) {
	s, _, _ := newTestService(t)

	data, err := s.Export(context.Background(), mustSlot(t, "examplesHistory"))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestPromoteCopiesIntoBothSlots(t *testing.T) {
	s, store, _ := newTestService(t)
	ctx := context.Background()
	source := mustSlot(t, "vStylesHistory")

	_, err := store.Save(ctx, source.Key, []history.Record{
		{ID: "r1", FinalPrompt: "portrait néon", GeneratedImageURL: "data:image/png;base64,AAAA", Timestamp: 1},
	})
	require.NoError(t, err)

	added, err := s.Promote(ctx, source, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	examples, err := s.List(ctx, mustSlot(t, "examplesHistory"))
	require.NoError(t, err)
	assert.Len(t, examples, 1)

	generation, err := s.List(ctx, mustSlot(t, "generationHistory"))
	require.NoError(t, err)
	assert.Len(t, generation, 1)
}

func TestPromoteSkipsDuplicateImage(t *testing.T) {
	s, store, _ := newTestService(t)
	ctx := context.Background()
	source := mustSlot(t, "vStylesHistory")

	_, err := store.Save(ctx, source.Key, []history.Record{
		{ID: "r1", FinalPrompt: "a", GeneratedImageURL: "data:image/png;base64,AAAA", Timestamp: 1},
		{ID: "r2", FinalPrompt: "b", GeneratedImageURL: "data:image/png;base64,AAAA", Timestamp: 2},
	})
	require.NoError(t, err)

	added, err := s.Promote(ctx, source, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// 같은 대표 이미지는 다시 승격되지 않는다
	added, err = s.Promote(ctx, source, "r2")
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestPromoteUnknownRecord(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.Promote(context.Background(), mustSlot(t, "vImageHistory"), "missing")
	assert.Error(t, err)
}

func TestBackupRoundTrip(t *testing.T) {
	s, store, mem := newTestService(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "generationHistory", []history.Record{
		{ID: "g1", Prompt: "sauvegarde", Timestamp: 1},
	})
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, "customImageStyles", `[{"id":"s1","title":"Néon","template":"t","isCustom":true}]`))

	backup, err := s.ExportBackup(ctx)
	require.NoError(t, err)
	assert.Len(t, backup, 2)

	// 새 저장소에 복원
	s2, _, mem2 := newTestService(t)
	data, err := json.Marshal(backup)
	require.NoError(t, err)

	restored, err := s2.ImportBackup(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	raw, ok, err := mem2.Get(ctx, "customImageStyles")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"s1","title":"Néon","template":"t","isCustom":true}]`, raw)
}

func TestImportBackupRejectsUnknownPayload(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.ImportBackup(ctx, []byte(`{"theme":"dark","tabPosition":"left"}`))
	assert.ErrorIs(t, err, history.ErrInvalidImport)

	_, err = s.ImportBackup(ctx, []byte(`not json`))
	assert.ErrorIs(t, err, history.ErrInvalidImport)
}

func TestImportBackupIgnoresUnknownKeys(t *testing.T) {
	s, _, mem := newTestService(t)
	ctx := context.Background()

	payload := `{"generationHistory":[],"theme":"dark"}`
	restored, err := s.ImportBackup(ctx, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	_, ok, err := mem.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImportBackupInvalidatesLoadedMirror(t *testing.T) {
	s, store, _ := newTestService(t)
	ctx := context.Background()

	// 미러에 빈 슬롯이 캐시된 상태에서 복원
	_, err := store.Load(ctx, "generationHistory")
	require.NoError(t, err)

	payload := `{"generationHistory":[{"id":"g1","prompt":"restauré","timestamp":1}]}`
	_, err = s.ImportBackup(ctx, []byte(payload))
	require.NoError(t, err)

	records, err := store.Load(ctx, "generationHistory")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "restauré", records[0].Prompt)
}
