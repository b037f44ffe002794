package templates

// Item - 프롬프트 템플릿 아이템
// 내장 아이템은 IsCustom=false, 사용자 정의 아이템만 슬롯에 저장된다
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Template    string `json:"template"`
	Placeholder string `json:"placeholder,omitempty"`
	IsCustom    bool   `json:"isCustom"`
}

// Set - 템플릿 세트 정의
// 세트마다 저장 슬롯, 치환 변수, (있다면) 결과 히스토리 슬롯이 다르다
type Set struct {
	Name        string // URL 경로의 세트 이름
	ItemsKey    string // 커스텀 아이템 저장 슬롯
	Variable    string // 치환 변수 ("[TEXT]" | "[SUJET]")
	HistorySlot string // 생성 결과 히스토리 슬롯 ("" = 히스토리 없음)
	AllowsImage bool   // 업로드 이미지와 함께 생성 가능 여부
	Defaults    []Item
}

// GenerateItemRequest - 템플릿 기반 생성 요청
type GenerateItemRequest struct {
	ItemID     string `json:"itemId"`
	Text       string `json:"text"`                 // 치환 변수에 들어갈 텍스트
	Template   string `json:"template,omitempty"`   // 아이템 템플릿 수정본 (비어있으면 아이템 원본)
	InputImage string `json:"inputImage,omitempty"` // data URI (AllowsImage 세트만)
}

// AddItemRequest - 커스텀 아이템 추가 요청
type AddItemRequest struct {
	Title    string `json:"title"`
	Template string `json:"template"`
}

// ItemsResponse - 아이템 목록 응답
type ItemsResponse struct {
	Success bool   `json:"success"`
	Items   []Item `json:"items,omitempty"`
	Message string `json:"message,omitempty"`
}

// GenerateItemResponse - 템플릿 생성 응답
type GenerateItemResponse struct {
	Success     bool     `json:"success"`
	FinalPrompt string   `json:"finalPrompt,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	Message     string   `json:"message,omitempty"`
	Category    string   `json:"category,omitempty"`
}
