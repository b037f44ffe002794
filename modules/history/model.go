package history

// Slot - 노출되는 히스토리 슬롯 정의
// RequiredKeys는 import 파일의 얕은 스키마 검증에 쓰인다
type Slot struct {
	Key          string
	Cap          int
	RequiredKeys []string
}

// 슬롯 레지스트리 (화이트리스트 밖의 슬롯은 HTTP로 접근 불가)
var slots = map[string]Slot{
	"generationHistory": {
		Key:          "generationHistory",
		Cap:          20,
		RequiredKeys: []string{"id", "prompt", "timestamp"},
	},
	"examplesHistory": {
		Key:          "examplesHistory",
		Cap:          50,
		RequiredKeys: []string{"id", "prompt", "timestamp"},
	},
	"vImageHistory": {
		Key:          "vImageHistory",
		Cap:          50,
		RequiredKeys: []string{"id", "finalPrompt"},
	},
	"vStylesHistory": {
		Key:          "vStylesHistory",
		Cap:          50,
		RequiredKeys: []string{"id", "finalPrompt"},
	},
}

// backupKeys - 백업 export/import 대상 슬롯 (원본 앱의 전체 백업 화이트리스트)
var backupKeys = []string{
	"generationHistory",
	"examplesHistory",
	"customInspirationModules",
	"customImageModules",
	"customImageStyles",
	"vImageHistory",
	"vStylesHistory",
}

// resolveSlot - 슬롯 이름 확인
func resolveSlot(name string) (Slot, bool) {
	slot, ok := slots[name]
	return slot, ok
}

// PromoteRequest - 슬롯 간 레코드 승격 요청
type PromoteRequest struct {
	FromSlot string `json:"fromSlot"`
	RecordID string `json:"recordId"`
}
