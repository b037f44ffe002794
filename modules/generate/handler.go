package generate

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"vision-studio-server/modules/common/gemini"
	"vision-studio-server/modules/common/usage"
)

type GenerateHandler struct {
	service *Service
}

func NewGenerateHandler(service *Service) *GenerateHandler {
	return &GenerateHandler{service: service}
}

// RegisterRoutes - 라우터에 Generate 엔드포인트 등록
func (h *GenerateHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate", h.Generate).Methods("POST", "OPTIONS")
	log.Println("✅ Generate routes registered: /api/generate")
}

// Generate - 이미지 생성 요청 처리
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// OPTIONS 요청 처리 (CORS preflight)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success: false,
			Message: "Invalid request format",
		})
		return
	}

	// 입력 검증
	if req.Prompt == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success: false,
			Message: "Missing required field: prompt",
		})
		return
	}

	// 기본값 설정
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	if !ValidAspectRatios[req.AspectRatio] {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success: false,
			Message: "Unsupported aspect ratio: " + req.AspectRatio,
		})
		return
	}

	if req.NumberOfImages == 0 {
		req.NumberOfImages = 1
	}
	if req.NumberOfImages < 1 || req.NumberOfImages > 4 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success: false,
			Message: "numberOfImages must be between 1 and 4",
		})
		return
	}

	// 입력 이미지 모드는 항상 1장만 생성
	if req.InputImage != "" {
		req.NumberOfImages = 1
	}

	log.Printf("🎨 Generate request: prompt=%.60q, ratio=%s, count=%d, hasInput=%v",
		req.Prompt, req.AspectRatio, req.NumberOfImages, req.InputImage != "")

	// 일일 사용량 차감
	ctx := r.Context()
	if err := h.service.Meter().Consume(ctx, req.NumberOfImages); err != nil {
		if errors.Is(err, usage.ErrDailyLimit) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(GenerateResponse{
				Success:  false,
				Message:  "Daily generation limit reached. Try again tomorrow.",
				Category: string(gemini.ErrorQuota),
			})
			return
		}
		log.Printf("❌ Failed to check usage: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success: false,
			Message: "Failed to verify daily usage",
		})
		return
	}

	// 이미지 생성
	imageURLs, err := h.service.GenerateImages(ctx, req)
	if err != nil {
		log.Printf("❌ Generation failed: %v", err)

		// 실패 시 차감분 복구
		if refundErr := h.service.Meter().Refund(ctx, req.NumberOfImages); refundErr != nil {
			log.Printf("⚠️  Failed to refund usage: %v", refundErr)
		}

		category := gemini.CategorizeError(err)
		status := http.StatusInternalServerError
		switch category {
		case gemini.ErrorQuota:
			status = http.StatusTooManyRequests
		case gemini.ErrorSafety:
			status = http.StatusBadRequest
		case gemini.ErrorAuth:
			status = http.StatusUnauthorized
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success:  false,
			Message:  category.UserMessage(),
			Category: string(category),
		})
		return
	}

	// 히스토리 기록
	h.service.RecordHistory(ctx, req, imageURLs)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(GenerateResponse{
		Success:   true,
		ImageURLs: imageURLs,
	})
}
