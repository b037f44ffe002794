package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"
)

// Supabase - Supabase 테이블 기반 슬롯 저장소 (기기 간 동기화용)
// 테이블 구조: slot_key (text, pk), payload (text), updated_at (timestamptz)
type Supabase struct {
	client     *supabase.Client
	table      string
	quotaBytes int
}

// NewSupabase - Supabase 저장소 생성
func NewSupabase(url, serviceKey, table string, quotaBytes int) (*Supabase, error) {
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Printf("✅ Supabase slot storage initialized (table: %s)", table)
	return &Supabase{
		client:     client,
		table:      table,
		quotaBytes: quotaBytes,
	}, nil
}

type slotRow struct {
	SlotKey string `json:"slot_key"`
	Payload string `json:"payload"`
}

func (s *Supabase) Get(ctx context.Context, key string) (string, bool, error) {
	data, _, err := s.client.From(s.table).
		Select("slot_key,payload", "", false).
		Eq("slot_key", key).
		Execute()

	if err != nil {
		return "", false, fmt.Errorf("failed to read slot %s: %w", key, err)
	}

	var rows []slotRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", false, fmt.Errorf("failed to parse slot response: %w", err)
	}

	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Payload, true, nil
}

func (s *Supabase) Set(ctx context.Context, key, value string) error {
	if s.quotaBytes > 0 && len(value) > s.quotaBytes {
		log.Printf("⚠️  Slot %s rejected: %d bytes exceeds quota %d", key, len(value), s.quotaBytes)
		return ErrQuotaExceeded
	}

	row := map[string]interface{}{
		"slot_key":   key,
		"payload":    value,
		"updated_at": "now()",
	}

	_, _, err := s.client.From(s.table).
		Insert(row, true, "slot_key", "", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

func (s *Supabase) Remove(ctx context.Context, key string) error {
	_, _, err := s.client.From(s.table).
		Delete("", "").
		Eq("slot_key", key).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", key, err)
	}
	return nil
}
