package templates

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-studio-server/modules/common/history"
	"vision-studio-server/modules/common/storage"
)

func newTestService(t *testing.T) (*Service, storage.Adapter) {
	t.Helper()
	mem := storage.NewMemory(1 << 20)
	return NewService(mem, history.NewStore(mem), nil), mem
}

func TestBuildPromptReplacesVariableCaseInsensitive(t *testing.T) {
	got := BuildPrompt("Une affiche avec [TEXT] au centre", "[TEXT]", "Bonjour")
	assert.Equal(t, "Une affiche avec Bonjour au centre", got)

	// 소문자 변형도 치환된다
	got = BuildPrompt("Portrait de [sujet], puis encore [SUJET]", "[SUJET]", "un chat")
	assert.Equal(t, "Portrait de un chat, puis encore un chat", got)
}

func TestBuildPromptLiteralReplacement(t *testing.T) {
	// 입력 텍스트에 정규식 특수문자가 있어도 그대로 들어가야 한다
	got := BuildPrompt("Style: [SUJET]", "[SUJET]", "a $1 bill")
	assert.Equal(t, "Style: a $1 bill", got)
}

func TestLoadItemsReturnsDefaults(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	items, err := s.LoadItems(ctx, "inspiration")
	require.NoError(t, err)
	assert.Equal(t, inspirationSet.Defaults, items)
}

func TestAddItemPersistsAsCustom(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	item, err := s.AddItem(ctx, "styles", AddItemRequest{
		Title:    "  Néon  ",
		Template: "Portrait néon de [SUJET]",
	})
	require.NoError(t, err)
	assert.Equal(t, "Néon", item.Title)
	assert.True(t, item.IsCustom)
	assert.NotEmpty(t, item.ID)

	items, err := s.LoadItems(ctx, "styles")
	require.NoError(t, err)
	assert.Len(t, items, len(stylesSet.Defaults)+1)
}

func TestCustomItemShadowedByDefaultTitleIsDropped(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()

	// 내장 아이템과 같은 제목의 커스텀 아이템을 슬롯에 직접 심는다
	shadow := []Item{{ID: "x", Title: stylesSet.Defaults[0].Title, Template: "autre", IsCustom: true}}
	data, _ := json.Marshal(shadow)
	require.NoError(t, mem.Set(ctx, stylesSet.ItemsKey, string(data)))

	items, err := s.LoadItems(ctx, "styles")
	require.NoError(t, err)
	assert.Len(t, items, len(stylesSet.Defaults))
}

func TestDeleteItemRejectsBuiltins(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	err := s.DeleteItem(ctx, "inspiration", inspirationSet.Defaults[0].ID)
	assert.Error(t, err)
}

func TestDeleteLastCustomItemClearsSlot(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()

	item, err := s.AddItem(ctx, "image", AddItemRequest{Title: "Affiche", Template: "Affiche de [TEXT]"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, "image", item.ID))

	_, ok, err := mem.Get(ctx, imageSet.ItemsKey)
	require.NoError(t, err)
	assert.False(t, ok, "empty custom list should remove the slot key")
}

func TestImportSkipsExistingTitles(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "styles", AddItemRequest{Title: "Néon", Template: "a"})
	require.NoError(t, err)

	payload := []map[string]string{
		{"title": "Néon", "template": "b"},                         // 커스텀과 제목 충돌
		{"title": stylesSet.Defaults[0].Title, "template": "c"},    // 내장과 제목 충돌
		{"title": "Aquarelle", "template": "Aquarelle de [SUJET]"}, // 신규
	}
	data, _ := json.Marshal(payload)

	added, err := s.ImportItems(ctx, "styles", data)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestImportRejectsMissingFields(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.ImportItems(ctx, "styles", []byte(`[{"title":"Sans template"}]`))
	assert.ErrorIs(t, err, ErrInvalidItems)

	_, err = s.ImportItems(ctx, "styles", []byte(`{"not":"an array"}`))
	assert.ErrorIs(t, err, ErrInvalidItems)
}

func TestExportContainsOnlyCustomItems(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	data, err := s.ExportItems(ctx, "inspiration")
	require.NoError(t, err)
	assert.Nil(t, data, "no custom items means nothing to export")

	_, err = s.AddItem(ctx, "inspiration", AddItemRequest{Title: "Rêverie", Template: "Rêverie autour de [SUJET]"})
	require.NoError(t, err)

	data, err = s.ExportItems(ctx, "inspiration")
	require.NoError(t, err)

	var exported []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "Rêverie", exported[0]["title"])
	assert.NotContains(t, exported[0], "id")
	assert.NotContains(t, exported[0], "isCustom")
}

func TestCorruptCustomSlotResets(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, stylesSet.ItemsKey, "{{{not json"))

	items, err := s.LoadItems(ctx, "styles")
	require.NoError(t, err)
	assert.Len(t, items, len(stylesSet.Defaults))

	_, ok, err := mem.Get(ctx, stylesSet.ItemsKey)
	require.NoError(t, err)
	assert.False(t, ok, "corrupt slot should be removed")
}

func TestUnknownSetRejected(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.LoadItems(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrUnknownSet)
}
