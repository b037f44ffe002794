package edit

import (
	"vision-studio-server/modules/common/mask"
)

// EditRequest - 마스크 기반 부분 수정 요청
// Composite가 있으면 이미 평탄화된 이미지를 그대로 사용하고,
// 없으면 Image + Strokes로 서버에서 합성한다
type EditRequest struct {
	Prompt string `json:"prompt"`

	Image         string        `json:"image,omitempty"`     // 원본 data URI (네이티브 해상도)
	Strokes       []mask.Stroke `json:"strokes,omitempty"`   // 디스플레이 좌표계 스트로크
	DisplayWidth  int           `json:"displayWidth,omitempty"`
	DisplayHeight int           `json:"displayHeight,omitempty"`

	Composite string `json:"composite,omitempty"` // 사전 평탄화된 data URI
}

// EditResponse - 수정 결과
type EditResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl,omitempty"` // 수정된 이미지 data URI
	Text     string `json:"text,omitempty"`     // 모델이 함께 반환한 설명 텍스트
	Message  string `json:"message,omitempty"`
	Category string `json:"category,omitempty"`
}
