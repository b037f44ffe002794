package generate

// GenerateRequest - 이미지 생성 요청
// InputImage가 있으면 image+text 모드 (flash-image), 없으면 text 모드 (Imagen)
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`    // 1:1 | 3:4 | 4:3 | 9:16 | 16:9
	NumberOfImages int    `json:"numberOfImages,omitempty"` // 1-4
	InputImage     string `json:"inputImage,omitempty"`     // data URI
	ModelStyle     string `json:"modelStyle,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
}

// GenerateResponse - 이미지 생성 응답
type GenerateResponse struct {
	Success   bool     `json:"success"`
	ImageURLs []string `json:"imageUrls,omitempty"` // data URI 배열
	Message   string   `json:"message,omitempty"`
	Category  string   `json:"category,omitempty"` // 실패 시 에러 분류 (QUOTA면 프론트가 사용량 재동기화)
}

// ValidAspectRatios - 지원하는 비율
var ValidAspectRatios = map[string]bool{
	"1:1":  true,
	"3:4":  true,
	"4:3":  true,
	"9:16": true,
	"16:9": true,
}
