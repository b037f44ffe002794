package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"vision-studio-server/modules/common/storage"
)

// ErrStorageFull - 빈 리스트조차 저장할 수 없을 때 (슬롯 상태는 변경되지 않음)
var ErrStorageFull = errors.New("storage full: could not save history")

// DedupPolicy - merge 시 중복 판정 기준
type DedupPolicy int

const (
	// DedupByID - id가 같으면 중복 (import 병합용, 기존 레코드가 이긴다)
	DedupByID DedupPolicy = iota
	// DedupByPrimaryImage - 대표 이미지가 같으면 중복 (기능 간 승격용)
	DedupByPrimaryImage
)

// Store - 용량 제한 저장소 위의 히스토리 스토어
// 슬롯별 인메모리 미러를 유지하고, 저장 성공이 확인된 후에만 미러를 갱신한다
type Store struct {
	adapter storage.Adapter

	mu     sync.Mutex
	mirror map[string][]Record
}

// NewStore - 스토어 생성
func NewStore(adapter storage.Adapter) *Store {
	return &Store{
		adapter: adapter,
		mirror:  make(map[string][]Record),
	}
}

// Invalidate - 모든 미러 비우기 (저장소가 외부에서 바뀐 뒤 호출)
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = make(map[string][]Record)
}

// FitToCapacity - canPersist를 만족하는 가장 긴 prefix 반환
// 전체 리스트부터 빈 리스트까지 시도하고, 빈 리스트조차 실패하면 nil
func FitToCapacity(records []Record, canPersist func([]Record) bool) []Record {
	for end := len(records); end >= 0; end-- {
		prefix := records[:end]
		if canPersist(prefix) {
			return prefix
		}
	}
	return nil
}

// Load - 슬롯 내용을 저장소에서 읽어 미러 채우기
func (s *Store) Load(ctx context.Context, slotKey string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx, slotKey)
	if err != nil {
		return nil, err
	}
	return cloneRecords(records), nil
}

// loadLocked - 미러가 비어있으면 저장소에서 채운다 (s.mu 보유 상태에서 호출)
func (s *Store) loadLocked(ctx context.Context, slotKey string) ([]Record, error) {
	if cached, ok := s.mirror[slotKey]; ok {
		return cached, nil
	}

	value, ok, err := s.adapter.Get(ctx, slotKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", slotKey, err)
	}
	if !ok {
		s.mirror[slotKey] = nil
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal([]byte(value), &records); err != nil {
		// 깨진 슬롯은 비어있는 것으로 취급 (다음 저장이 덮어쓴다)
		log.Printf("⚠️  Slot %s contains invalid JSON, treating as empty: %v", slotKey, err)
		s.mirror[slotKey] = nil
		return nil, nil
	}

	s.mirror[slotKey] = records
	return records, nil
}

// Save - 리스트 전체를 슬롯에 저장 (용량 초과 시 가장 오래된 것부터 제거하며 재시도)
// 성공 시 실제 저장된 리스트 반환, 빈 리스트조차 실패하면 ErrStorageFull
func (s *Store) Save(ctx context.Context, slotKey string, records []Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, slotKey, records)
}

func (s *Store) saveLocked(ctx context.Context, slotKey string, records []Record) ([]Record, error) {
	var hardErr error

	persisted := FitToCapacity(records, func(prefix []Record) bool {
		if hardErr != nil {
			return false // 복구 불가능한 에러 이후에는 더 시도하지 않음
		}

		data, err := json.Marshal(prefix)
		if err != nil {
			hardErr = err
			return false
		}

		err = s.adapter.Set(ctx, slotKey, string(data))
		if err == nil {
			return true
		}
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return false // 가장 오래된 레코드를 버리고 재시도
		}
		hardErr = err
		return false
	})

	if hardErr != nil {
		log.Printf("❌ Failed to save slot %s: %v", slotKey, hardErr)
		return nil, fmt.Errorf("failed to save slot %s: %w", slotKey, hardErr)
	}
	if persisted == nil {
		log.Printf("❌ Slot %s: even an empty list could not be saved", slotKey)
		return nil, ErrStorageFull
	}

	if len(persisted) < len(records) {
		log.Printf("⚠️  Slot %s: storage quota exceeded, history truncated from %d to %d entries",
			slotKey, len(records), len(persisted))
	}

	s.mirror[slotKey] = persisted
	return cloneRecords(persisted), nil
}

// Add - 레코드를 맨 앞에 추가하고 cap으로 자른 뒤 저장
// 저장 실패 시 미러는 변경 전 상태 그대로 남는다
func (s *Store) Add(ctx context.Context, slotKey string, record Record, cap int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(ctx, slotKey)
	if err != nil {
		return nil, err
	}
	proposed := make([]Record, 0, len(current)+1)
	proposed = append(proposed, record)
	proposed = append(proposed, current...)
	if cap > 0 && len(proposed) > cap {
		proposed = proposed[:cap]
	}

	return s.saveLocked(ctx, slotKey, proposed)
}

// Delete - 레코드 하나 삭제 후 저장. 실패 시 미러 불변
func (s *Store) Delete(ctx context.Context, slotKey, id string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(ctx, slotKey)
	if err != nil {
		return nil, err
	}
	proposed := make([]Record, 0, len(current))
	for _, record := range current {
		if record.ID != id {
			proposed = append(proposed, record)
		}
	}

	return s.saveLocked(ctx, slotKey, proposed)
}

// Clear - 슬롯 비우기. 실패 시 미러 불변
func (s *Store) Clear(ctx context.Context, slotKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.saveLocked(ctx, slotKey, []Record{})
	return err
}

// Merge - 들어온 레코드를 중복 제거 후 병합, timestamp 내림차순 정렬, cap으로 자른 뒤 저장
// 반환값 added는 실제로 새로 반영된 레코드 수 (0이면 "새로 추가할 것 없음")
func (s *Store) Merge(ctx context.Context, slotKey string, incoming []Record, cap int, policy DedupPolicy) ([]Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(ctx, slotKey)
	if err != nil {
		return nil, 0, err
	}

	fresh := dedupAgainst(current, incoming, policy)
	if len(fresh) == 0 {
		return cloneRecords(current), 0, nil
	}

	merged := make([]Record, 0, len(fresh)+len(current))
	merged = append(merged, fresh...)
	merged = append(merged, current...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	if cap > 0 && len(merged) > cap {
		merged = merged[:cap]
	}

	persisted, err := s.saveLocked(ctx, slotKey, merged)
	if err != nil {
		return cloneRecords(current), 0, err
	}
	return persisted, len(fresh), nil
}

// dedupAgainst - 기존 레코드와 중복되는 incoming 제거 (기존이 이긴다)
func dedupAgainst(existing, incoming []Record, policy DedupPolicy) []Record {
	seen := make(map[string]bool, len(existing))
	for _, record := range existing {
		switch policy {
		case DedupByPrimaryImage:
			if img := record.PrimaryImage(); img != "" {
				seen[img] = true
			}
		default:
			seen[record.ID] = true
		}
	}

	var fresh []Record
	for _, record := range incoming {
		var key string
		switch policy {
		case DedupByPrimaryImage:
			key = record.PrimaryImage()
		default:
			key = record.ID
		}
		if key != "" && seen[key] {
			continue
		}
		if key != "" {
			seen[key] = true // incoming 안에서의 중복도 제거
		}
		fresh = append(fresh, record)
	}
	return fresh
}

func cloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
