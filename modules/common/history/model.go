package history

import (
	"encoding/json"
	"fmt"
)

// Record - 슬롯에 저장되는 히스토리 레코드 (세션을 넘어 유지되는 JSON 스키마)
// 기능별 필드는 전부 optional이고, 이미지 필드는 다운사이즈된 data URI를 담는다
type Record struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds

	// 생성 설정
	Prompt         string `json:"prompt,omitempty"`
	UserInput      string `json:"userInput,omitempty"`
	FinalPrompt    string `json:"finalPrompt,omitempty"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	ModelStyle     string `json:"modelStyle,omitempty"`
	ModuleID       string `json:"moduleId,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
	NumberOfImages int    `json:"numberOfImages,omitempty"`

	// 이미지 (data URI)
	InputImageURLs    []string `json:"inputImageUrls,omitempty"`
	BaseImageURL      string   `json:"baseImageUrl,omitempty"`
	ImageURLs         []string `json:"imageUrls,omitempty"`
	GeneratedImageURL string   `json:"generatedImageUrl,omitempty"`
}

// PrimaryImage - 레코드의 대표 이미지 (content 기준 중복 판정에 사용)
func (r Record) PrimaryImage() string {
	if r.GeneratedImageURL != "" {
		return r.GeneratedImageURL
	}
	if len(r.ImageURLs) > 0 {
		return r.ImageURLs[0]
	}
	return ""
}

// ErrInvalidImport - import 파일 형식 오류 (변경 없이 거부)
var ErrInvalidImport = fmt.Errorf("invalid import format")

// ParseImport - import 파일 파싱 + 얕은 스키마 검증
// 모든 항목에 requiredKeys가 존재해야 한다 (원본 형식 검증과 동일)
func ParseImport(data []byte, requiredKeys ...string) ([]Record, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: not a JSON array", ErrInvalidImport)
	}

	for i, item := range raw {
		for _, key := range requiredKeys {
			if _, ok := item[key]; !ok {
				return nil, fmt.Errorf("%w: entry %d missing key %q", ErrInvalidImport, i, key)
			}
		}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return records, nil
}
