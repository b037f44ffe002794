package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"vision-studio-server/modules/common/config"
	"vision-studio-server/modules/common/history"
	"vision-studio-server/modules/common/storage"
	"vision-studio-server/modules/common/utils"
)

type Service struct {
	store   *history.Store
	adapter storage.Adapter
}

func NewService(store *history.Store, adapter storage.Adapter) *Service {
	log.Println("✅ History service initialized")
	return &Service{
		store:   store,
		adapter: adapter,
	}
}

// downsizeRecord - 레코드의 모든 이미지 필드를 저장 크기로 축소
func downsizeRecord(record history.Record) history.Record {
	cfg := config.GetConfig()
	maxDim := cfg.ThumbnailMaxDim

	if record.GeneratedImageURL != "" {
		record.GeneratedImageURL = utils.DownsizeDataURI(record.GeneratedImageURL, maxDim)
	}
	if record.BaseImageURL != "" {
		record.BaseImageURL = utils.DownsizeDataURI(record.BaseImageURL, maxDim)
	}
	for i, url := range record.ImageURLs {
		record.ImageURLs[i] = utils.DownsizeDataURI(url, maxDim)
	}
	for i, url := range record.InputImageURLs {
		record.InputImageURLs[i] = utils.DownsizeDataURI(url, maxDim)
	}
	return record
}

// List - 슬롯의 레코드 목록
func (s *Service) List(ctx context.Context, slot Slot) ([]history.Record, error) {
	return s.store.Load(ctx, slot.Key)
}

// Add - 레코드 추가 (이미지 다운사이즈 후)
func (s *Service) Add(ctx context.Context, slot Slot, record history.Record) ([]history.Record, error) {
	return s.store.Add(ctx, slot.Key, downsizeRecord(record), slot.Cap)
}

// Delete - 레코드 삭제
func (s *Service) Delete(ctx context.Context, slot Slot, id string) ([]history.Record, error) {
	return s.store.Delete(ctx, slot.Key, id)
}

// Clear - 슬롯 비우기
func (s *Service) Clear(ctx context.Context, slot Slot) error {
	return s.store.Clear(ctx, slot.Key)
}

// Import - import 파일 병합 (ID 기준 중복 제거, 기존 레코드 우선)
// 추가된 레코드 수를 반환한다
func (s *Service) Import(ctx context.Context, slot Slot, data []byte) (int, error) {
	records, err := history.ParseImport(data, slot.RequiredKeys...)
	if err != nil {
		return 0, err
	}

	_, added, err := s.store.Merge(ctx, slot.Key, records, slot.Cap, history.DedupByID)
	if err != nil {
		return 0, err
	}

	log.Printf("📥 [History] Imported %d record(s) into %s", added, slot.Key)
	return added, nil
}

// Export - 슬롯 전체를 JSON으로 직렬화
func (s *Service) Export(ctx context.Context, slot Slot) ([]byte, error) {
	records, err := s.store.Load(ctx, slot.Key)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return json.MarshalIndent(records, "", "  ")
}

// Promote - 한 슬롯의 레코드를 examplesHistory와 generationHistory로 승격
// 대표 이미지 기준으로 중복을 걸러낸다 (이미 있으면 건너뜀)
func (s *Service) Promote(ctx context.Context, fromSlot Slot, recordID string) (int, error) {
	records, err := s.store.Load(ctx, fromSlot.Key)
	if err != nil {
		return 0, err
	}

	var target *history.Record
	for i := range records {
		if records[i].ID == recordID {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return 0, fmt.Errorf("record not found: %s", recordID)
	}

	totalAdded := 0

	examples, _ := resolveSlot("examplesHistory")
	_, added, err := s.store.Merge(ctx, examples.Key, []history.Record{*target}, examples.Cap, history.DedupByPrimaryImage)
	if err != nil {
		return totalAdded, fmt.Errorf("failed to promote into %s: %w", examples.Key, err)
	}
	totalAdded += added

	generation, _ := resolveSlot("generationHistory")
	_, added, err = s.store.Merge(ctx, generation.Key, []history.Record{*target}, generation.Cap, history.DedupByPrimaryImage)
	if err != nil {
		return totalAdded, fmt.Errorf("failed to promote into %s: %w", generation.Key, err)
	}
	totalAdded += added

	log.Printf("📌 [History] Promoted record %s from %s (%d slot(s) updated)", recordID, fromSlot.Key, totalAdded)
	return totalAdded, nil
}

// ExportBackup - 화이트리스트 슬롯 전체 백업
// 값이 있는 슬롯만 포함한다
func (s *Service) ExportBackup(ctx context.Context) (map[string]json.RawMessage, error) {
	backup := make(map[string]json.RawMessage)

	for _, key := range backupKeys {
		raw, ok, err := s.adapter.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
		}
		if !ok {
			continue
		}

		if json.Valid([]byte(raw)) {
			backup[key] = json.RawMessage(raw)
		} else {
			encoded, _ := json.Marshal(raw)
			backup[key] = encoded
		}
	}

	return backup, nil
}

// ImportBackup - 백업 복원. 알려진 키만 덮어쓴다
// 알려진 키가 하나도 없으면 형식 오류로 거부
func (s *Service) ImportBackup(ctx context.Context, data []byte) (int, error) {
	var backup map[string]json.RawMessage
	if err := json.Unmarshal(data, &backup); err != nil {
		return 0, fmt.Errorf("%w: not a JSON object", history.ErrInvalidImport)
	}

	known := make(map[string]bool, len(backupKeys))
	for _, key := range backupKeys {
		known[key] = true
	}

	restored := 0
	hasKnown := false
	for key := range backup {
		if known[key] {
			hasKnown = true
			break
		}
	}
	if !hasKnown {
		return 0, fmt.Errorf("%w: no recognized backup keys", history.ErrInvalidImport)
	}

	for key, value := range backup {
		if !known[key] {
			continue
		}
		if err := s.adapter.Set(ctx, key, string(value)); err != nil {
			return restored, fmt.Errorf("failed to restore slot %s: %w", key, err)
		}
		restored++
	}

	// 스토어의 메모리 미러 무효화 (다음 Load에서 새로 읽음)
	s.store.Invalidate()

	log.Printf("📦 [History] Backup restored: %d slot(s)", restored)
	return restored, nil
}
