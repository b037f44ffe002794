package video

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"vision-studio-server/modules/common/config"
)

type VideoHandler struct {
	service *Service
}

func NewVideoHandler(service *Service) *VideoHandler {
	return &VideoHandler{service: service}
}

// RegisterRoutes - 라우터에 Video 엔드포인트 등록
func (h *VideoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/video/submit", h.SubmitJob).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/video/status/{jobId}", h.GetJobStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/video/cancel/{jobId}", h.CancelJob).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/video/download/{jobId}", h.Download).Methods("GET", "OPTIONS")
	log.Println("✅ Video routes registered: /api/video/submit, /api/video/status/{jobId}, /api/video/cancel/{jobId}, /api/video/download/{jobId}")
}

// SubmitJob - 영상 생성 작업 제출 (Redis Queue에 추가)
func (h *VideoHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req VideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: "Invalid request format"})
		return
	}

	if req.Prompt == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: "Missing required field: prompt"})
		return
	}

	// 기본값
	if req.Stage == "" {
		req.Stage = StagePreview
	}
	if req.Stage != StagePreview && req.Stage != StageFull {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: "stage must be preview or full"})
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}
	if !ValidVideoRatios[req.AspectRatio] {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: "Unsupported aspect ratio: " + req.AspectRatio})
		return
	}
	if req.Resolution == "" {
		req.Resolution = "720p"
	}
	if !ValidResolutions[req.Resolution] {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: "Unsupported resolution: " + req.Resolution})
		return
	}

	log.Printf("🎬 Video job submission:")
	log.Printf("  - Stage: %s", req.Stage)
	log.Printf("  - Prompt: %.60s", req.Prompt)
	log.Printf("  - Ratio: %s, Resolution: %s", req.AspectRatio, req.Resolution)

	// 한도 사전 확인 (실제 차감은 worker가 처리 시작할 때)
	remaining, err := h.service.meter.Remaining(r.Context())
	if err == nil && remaining < h.service.meter.VideoCost() {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(VideoResponse{
			Success: false,
			Message: fmt.Sprintf("Not enough daily budget for a video (cost: %d, remaining: %d)", h.service.meter.VideoCost(), remaining),
		})
		return
	}

	jobID, err := h.service.SubmitJob(r.Context(), req)
	if err != nil {
		log.Printf("❌ Failed to submit video job: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: "Failed to submit video job"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(VideoResponse{
		Success: true,
		JobID:   jobID,
		Message: "Video job submitted successfully",
	})
}

// GetJobStatus - Job 상태 조회
func (h *VideoHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	job, err := h.service.FetchJob(r.Context(), jobID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: "Job not found"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(VideoResponse{Success: true, JobID: jobID, Job: job})
}

// CancelJob - Job 취소
func (h *VideoHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	if err := h.service.CancelJob(r.Context(), jobID); err != nil {
		log.Printf("⚠️  Cancel failed for %s: %v", jobID, err)
		status := http.StatusConflict
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(VideoResponse{Success: false, Message: err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(VideoResponse{Success: true, JobID: jobID, Message: "Cancel requested"})
}

// Download - 완성된 영상 스트리밍 다운로드
// 원본 다운로드 URI에 API 키를 붙여 프록시한다 (키가 클라이언트에 노출되지 않도록)
func (h *VideoHandler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	job, err := h.service.FetchJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, `{"error": "Job not found"}`, http.StatusNotFound)
		return
	}

	if job.Status != StatusCompleted || job.VideoURI == "" {
		http.Error(w, `{"error": "Video is not ready"}`, http.StatusConflict)
		return
	}

	cfg := config.GetConfig()
	downloadURL := job.VideoURI
	if len(cfg.GeminiAPIKeys) > 0 {
		sep := "?"
		if strings.Contains(downloadURL, "?") {
			sep = "&"
		}
		downloadURL = downloadURL + sep + "key=" + cfg.GeminiAPIKeys[0]
	}

	upstream, err := http.NewRequestWithContext(r.Context(), "GET", downloadURL, nil)
	if err != nil {
		http.Error(w, `{"error": "Failed to build download request"}`, http.StatusInternalServerError)
		return
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(upstream)
	if err != nil {
		log.Printf("❌ Video download failed: %v", err)
		http.Error(w, `{"error": "Failed to download video"}`, http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ Video download upstream status: %d", resp.StatusCode)
		http.Error(w, `{"error": "Failed to download video"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "video-"+jobID+".mp4"))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("⚠️  Video stream interrupted: %v", err)
	}
}
