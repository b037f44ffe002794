package storage

import (
	"context"
	"errors"
)

// ErrQuotaExceeded - 슬롯 용량 초과 시 어댑터가 반환하는 에러
// (브라우저 localStorage의 QuotaExceededError 역할)
var ErrQuotaExceeded = errors.New("slot quota exceeded")

// Adapter - 슬롯 저장소 인터페이스
// 슬롯 하나는 통째로 읽고 통째로 쓴다 (부분 업데이트 없음)
type Adapter interface {
	// Get - 슬롯 내용 조회. 슬롯이 없으면 ok=false
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set - 슬롯 전체 교체. 용량 초과 시 ErrQuotaExceeded (기존 값 유지)
	Set(ctx context.Context, key, value string) error

	// Remove - 슬롯 삭제. 없는 슬롯 삭제는 no-op
	Remove(ctx context.Context, key string) error
}
