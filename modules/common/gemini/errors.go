package gemini

import (
	"strings"
)

// ErrorCategory - Gemini API 에러 분류
type ErrorCategory string

const (
	ErrorSafety   ErrorCategory = "SAFETY"    // 안전 필터 차단
	ErrorQuota    ErrorCategory = "QUOTA"     // 할당량 초과 (429)
	ErrorAuth     ErrorCategory = "AUTH"      // API 키 문제
	ErrorGeneric  ErrorCategory = "GENERIC"   // 기타 에러
)

// CategorizeError - 에러 메시지를 기반으로 카테고리 판별
// QUOTA 에러는 프론트에서 사용량 카운터 재동기화 트리거에 사용
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorGeneric
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "safety") || strings.Contains(msg, "blocked"):
		return ErrorSafety
	case strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota"):
		return ErrorQuota
	case strings.Contains(msg, "permission_denied") || strings.Contains(msg, "api key") || strings.Contains(msg, "api_key_invalid") || strings.Contains(msg, "unauthenticated"):
		return ErrorAuth
	default:
		return ErrorGeneric
	}
}

// UserMessage - 카테고리별 사용자 노출 메시지
func (c ErrorCategory) UserMessage() string {
	switch c {
	case ErrorSafety:
		return "Your request was blocked by the safety filter. Try rephrasing your prompt."
	case ErrorQuota:
		return "The API quota has been exhausted. Please try again later."
	case ErrorAuth:
		return "The API key is invalid or lacks permission."
	default:
		return "Image generation failed. Please try again."
	}
}
