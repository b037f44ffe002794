package video

// Job 상태
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "user_cancelled"
)

// Stage - 생성 단계 (빠른 미리보기 / 풀 렌더)
const (
	StagePreview = "preview" // veo fast 모델
	StageFull    = "full"    // veo full 모델
)

// VideoRequest - 영상 생성 요청
type VideoRequest struct {
	Prompt      string `json:"prompt"`
	Stage       string `json:"stage,omitempty"`       // preview | full (기본 preview)
	AspectRatio string `json:"aspectRatio,omitempty"` // 16:9 | 9:16
	Resolution  string `json:"resolution,omitempty"`  // 720p | 1080p
}

// VideoJob - Redis에 저장되는 Job 레코드
type VideoJob struct {
	JobID       string `json:"jobId"`
	Status      string `json:"status"`
	Stage       string `json:"stage"`
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
	VideoURI    string `json:"videoUri,omitempty"` // 다운로드 원본 URI (키 없이)
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// VideoResponse - 제출/상태 응답
type VideoResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId,omitempty"`
	Job     *VideoJob `json:"job,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ValidVideoRatios - 영상에서 지원하는 비율
var ValidVideoRatios = map[string]bool{
	"16:9": true,
	"9:16": true,
}

// ValidResolutions - 지원 해상도
var ValidResolutions = map[string]bool{
	"720p":  true,
	"1080p": true,
}
