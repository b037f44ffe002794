package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"vision-studio-server/modules/common/config"
	"vision-studio-server/modules/common/history"
	"vision-studio-server/modules/common/storage"
	"vision-studio-server/modules/common/utils"
	"vision-studio-server/modules/generate"
)

// ErrUnknownSet - 존재하지 않는 세트 이름
var ErrUnknownSet = fmt.Errorf("unknown template set")

// ErrInvalidItems - import 파일 형식 오류 (title/template 필수)
var ErrInvalidItems = fmt.Errorf("invalid items format")

type Service struct {
	adapter  storage.Adapter
	store    *history.Store
	generate *generate.Service
}

func NewService(adapter storage.Adapter, store *history.Store, gen *generate.Service) *Service {
	log.Println("✅ Templates service initialized")
	return &Service{
		adapter:  adapter,
		store:    store,
		generate: gen,
	}
}

func resolveSet(name string) (*Set, error) {
	set, ok := Sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSet, name)
	}
	return set, nil
}

// LoadItems - 내장 아이템 + 커스텀 아이템 병합 목록
// 내장 아이템과 제목이 겹치는 커스텀 아이템은 버려진다
func (s *Service) LoadItems(ctx context.Context, setName string) ([]Item, error) {
	set, err := resolveSet(setName)
	if err != nil {
		return nil, err
	}

	custom, err := s.loadCustom(ctx, set)
	if err != nil {
		return nil, err
	}

	defaultTitles := make(map[string]bool, len(set.Defaults))
	for _, item := range set.Defaults {
		defaultTitles[item.Title] = true
	}

	items := make([]Item, 0, len(set.Defaults)+len(custom))
	items = append(items, set.Defaults...)
	for _, item := range custom {
		if !defaultTitles[item.Title] {
			items = append(items, item)
		}
	}
	return items, nil
}

// loadCustom - 슬롯에 저장된 커스텀 아이템 로드 (손상된 슬롯은 빈 목록 취급)
func (s *Service) loadCustom(ctx context.Context, set *Set) ([]Item, error) {
	raw, ok, err := s.adapter.Get(ctx, set.ItemsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom items: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Printf("⚠️  [Templates] Corrupt custom items in %s, resetting: %v", set.ItemsKey, err)
		s.adapter.Remove(ctx, set.ItemsKey)
		return nil, nil
	}
	return items, nil
}

// saveCustom - 커스텀 아이템 저장. 하나도 없으면 슬롯을 비운다
func (s *Service) saveCustom(ctx context.Context, set *Set, items []Item) error {
	if len(items) == 0 {
		return s.adapter.Remove(ctx, set.ItemsKey)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.adapter.Set(ctx, set.ItemsKey, string(data))
}

// AddItem - 커스텀 아이템 추가
func (s *Service) AddItem(ctx context.Context, setName string, req AddItemRequest) (*Item, error) {
	set, err := resolveSet(setName)
	if err != nil {
		return nil, err
	}

	custom, err := s.loadCustom(ctx, set)
	if err != nil {
		return nil, err
	}

	item := Item{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		Template:    strings.TrimSpace(req.Template),
		Placeholder: "Votre texte ici...",
		IsCustom:    true,
	}

	custom = append(custom, item)
	if err := s.saveCustom(ctx, set, custom); err != nil {
		return nil, fmt.Errorf("failed to save custom items: %w", err)
	}

	log.Printf("➕ [Templates] Custom item added to %s: %s", set.ItemsKey, item.Title)
	return &item, nil
}

// DeleteItem - 커스텀 아이템 삭제 (내장 아이템은 삭제 불가)
func (s *Service) DeleteItem(ctx context.Context, setName, itemID string) error {
	set, err := resolveSet(setName)
	if err != nil {
		return err
	}

	custom, err := s.loadCustom(ctx, set)
	if err != nil {
		return err
	}

	kept := custom[:0]
	for _, item := range custom {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}

	if len(kept) == len(custom) {
		return fmt.Errorf("custom item not found: %s", itemID)
	}

	return s.saveCustom(ctx, set, kept)
}

// ImportItems - 커스텀 아이템 import
// 제목이 이미 존재하는 아이템은 건너뛰고, 새로 추가된 개수를 반환한다
func (s *Service) ImportItems(ctx context.Context, setName string, data []byte) (int, error) {
	set, err := resolveSet(setName)
	if err != nil {
		return 0, err
	}

	var incoming []map[string]json.RawMessage
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0, fmt.Errorf("%w: not a JSON array", ErrInvalidItems)
	}
	for i, entry := range incoming {
		if _, ok := entry["title"]; !ok {
			return 0, fmt.Errorf("%w: entry %d missing title", ErrInvalidItems, i)
		}
		if _, ok := entry["template"]; !ok {
			return 0, fmt.Errorf("%w: entry %d missing template", ErrInvalidItems, i)
		}
	}

	var parsed []Item
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidItems, err)
	}

	existing, err := s.LoadItems(ctx, setName)
	if err != nil {
		return 0, err
	}
	existingTitles := make(map[string]bool, len(existing))
	for _, item := range existing {
		existingTitles[item.Title] = true
	}

	custom, err := s.loadCustom(ctx, set)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, item := range parsed {
		if item.Title == "" || existingTitles[item.Title] {
			continue
		}
		existingTitles[item.Title] = true
		custom = append(custom, Item{
			ID:          uuid.New().String(),
			Title:       item.Title,
			Template:    item.Template,
			Placeholder: item.Placeholder,
			IsCustom:    true,
		})
		added++
	}

	if added > 0 {
		if err := s.saveCustom(ctx, set, custom); err != nil {
			return 0, fmt.Errorf("failed to save imported items: %w", err)
		}
	}

	log.Printf("📥 [Templates] Imported %d item(s) into %s", added, set.ItemsKey)
	return added, nil
}

// ExportItems - 커스텀 아이템만 export (id/isCustom 필드는 제외)
func (s *Service) ExportItems(ctx context.Context, setName string) ([]byte, error) {
	set, err := resolveSet(setName)
	if err != nil {
		return nil, err
	}

	custom, err := s.loadCustom(ctx, set)
	if err != nil {
		return nil, err
	}
	if len(custom) == 0 {
		return nil, nil
	}

	type exportItem struct {
		Title       string `json:"title"`
		Template    string `json:"template"`
		Placeholder string `json:"placeholder,omitempty"`
	}
	out := make([]exportItem, len(custom))
	for i, item := range custom {
		out[i] = exportItem{Title: item.Title, Template: item.Template, Placeholder: item.Placeholder}
	}
	return json.MarshalIndent(out, "", "  ")
}

// BuildPrompt - 템플릿의 치환 변수를 입력 텍스트로 교체 (대소문자 무시)
func BuildPrompt(template, variable, text string) string {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(variable))
	return pattern.ReplaceAllLiteralString(template, text)
}

// Generate - 템플릿 기반 이미지 생성 + 세트 히스토리 기록
func (s *Service) Generate(ctx context.Context, setName string, req GenerateItemRequest) (string, []string, error) {
	set, err := resolveSet(setName)
	if err != nil {
		return "", nil, err
	}

	items, err := s.LoadItems(ctx, setName)
	if err != nil {
		return "", nil, err
	}

	var active *Item
	for i := range items {
		if items[i].ID == req.ItemID {
			active = &items[i]
			break
		}
	}
	if active == nil {
		return "", nil, fmt.Errorf("template item not found: %s", req.ItemID)
	}

	template := req.Template
	if template == "" {
		template = active.Template
	}
	finalPrompt := BuildPrompt(template, set.Variable, req.Text)

	genReq := generate.GenerateRequest{
		Prompt:         finalPrompt,
		AspectRatio:    "1:1",
		NumberOfImages: 1,
	}
	if set.AllowsImage && req.InputImage != "" {
		genReq.InputImage = req.InputImage
	}

	imageURLs, err := s.generate.GenerateImages(ctx, genReq)
	if err != nil {
		return finalPrompt, nil, err
	}

	if set.HistorySlot != "" {
		s.recordHistory(ctx, set, active, req, finalPrompt, imageURLs)
	}

	return finalPrompt, imageURLs, nil
}

// recordHistory - 세트 히스토리 슬롯에 결과 기록
func (s *Service) recordHistory(ctx context.Context, set *Set, item *Item, req GenerateItemRequest, finalPrompt string, imageURLs []string) {
	cfg := config.GetConfig()

	record := history.Record{
		ID:                uuid.New().String(),
		Timestamp:         time.Now().UnixMilli(),
		ModuleID:          item.ID,
		UserInput:         req.Text,
		FinalPrompt:       finalPrompt,
		GeneratedImageURL: utils.DownsizeDataURI(imageURLs[0], cfg.ThumbnailMaxDim),
	}
	if req.InputImage != "" {
		record.BaseImageURL = utils.DownsizeDataURI(req.InputImage, cfg.ThumbnailMaxDim)
	}

	if _, err := s.store.Add(ctx, set.HistorySlot, record, cfg.ModuleHistoryCap); err != nil {
		log.Printf("⚠️  [Templates] Failed to record history in %s: %v", set.HistorySlot, err)
	}
}
