package usage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"vision-studio-server/modules/common/storage"
)

// ErrDailyLimit - 일일 생성 한도 초과
var ErrDailyLimit = errors.New("daily generation limit reached")

// record - 스토리지에 저장되는 일일 사용량 (날짜가 바뀌면 리셋)
type record struct {
	Count int    `json:"count"`
	Date  string `json:"date"` // YYYY-MM-DD
}

// Meter - 일일 생성 사용량 측정기
// 이미지 생성 = 1, 영상 생성 = videoCost (기본 5)
type Meter struct {
	adapter   storage.Adapter
	slotKey   string
	limit     int
	videoCost int

	mu sync.Mutex
}

func NewMeter(adapter storage.Adapter, slotKey string, limit, videoCost int) *Meter {
	return &Meter{
		adapter:   adapter,
		slotKey:   slotKey,
		limit:     limit,
		videoCost: videoCost,
	}
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// load - 저장된 사용량 조회. 날짜가 지났으면 0부터 다시 시작
func (m *Meter) load(ctx context.Context) (record, error) {
	raw, ok, err := m.adapter.Get(ctx, m.slotKey)
	if err != nil {
		return record{Date: today()}, err
	}
	if !ok {
		return record{Date: today()}, nil
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Printf("⚠️  [Usage] Corrupt usage record, resetting: %v", err)
		return record{Date: today()}, nil
	}

	if rec.Date != today() {
		// 날짜 변경 - 카운터 리셋
		return record{Date: today()}, nil
	}
	return rec, nil
}

func (m *Meter) save(ctx context.Context, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.adapter.Set(ctx, m.slotKey, string(data))
}

// Remaining - 오늘 남은 생성 횟수
func (m *Meter) Remaining(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx)
	if err != nil {
		return 0, err
	}
	remaining := m.limit - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Consume - cost 만큼 사용량 차감. 한도 초과 시 ErrDailyLimit
// 차감은 저장 성공 후에만 확정됨
func (m *Meter) Consume(ctx context.Context, cost int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx)
	if err != nil {
		return err
	}

	if rec.Count+cost > m.limit {
		log.Printf("🚫 [Usage] Daily limit reached (%d/%d, cost %d)", rec.Count, m.limit, cost)
		return ErrDailyLimit
	}

	rec.Count += cost
	if err := m.save(ctx, rec); err != nil {
		return err
	}

	log.Printf("📊 [Usage] Consumed %d (today: %d/%d)", cost, rec.Count, m.limit)
	return nil
}

// ConsumeImage - 이미지 생성 1회 차감
func (m *Meter) ConsumeImage(ctx context.Context) error {
	return m.Consume(ctx, 1)
}

// ConsumeVideo - 영상 생성 비용 차감 (기본 5)
func (m *Meter) ConsumeVideo(ctx context.Context) error {
	return m.Consume(ctx, m.videoCost)
}

// VideoCost - 영상 1회 생성 비용
func (m *Meter) VideoCost() int {
	return m.videoCost
}

// Refund - 생성 실패 시 차감분 복구 (0 미만으로 내려가지 않음)
func (m *Meter) Refund(ctx context.Context, cost int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx)
	if err != nil {
		return err
	}

	rec.Count -= cost
	if rec.Count < 0 {
		rec.Count = 0
	}
	return m.save(ctx, rec)
}
