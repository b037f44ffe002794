package describe

// DescribeRequest - 이미지→프롬프트 설명 요청
type DescribeRequest struct {
	Image       string `json:"image"`                 // data URI
	Instruction string `json:"instruction,omitempty"` // 비어있으면 기본 지시문 사용
}

// DescribeResponse - 설명 결과
type DescribeResponse struct {
	Success  bool   `json:"success"`
	Prompt   string `json:"prompt,omitempty"` // 생성된 프롬프트 텍스트
	Message  string `json:"message,omitempty"`
	Category string `json:"category,omitempty"`
}
