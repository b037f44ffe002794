package edit

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"vision-studio-server/modules/common/gemini"
	"vision-studio-server/modules/common/mask"
	"vision-studio-server/modules/common/usage"
)

type EditHandler struct {
	service *Service
}

func NewEditHandler(service *Service) *EditHandler {
	return &EditHandler{service: service}
}

// RegisterRoutes - 라우터에 Edit 엔드포인트 등록
func (h *EditHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/edit", h.Edit).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/edit/composite", h.Composite).Methods("POST", "OPTIONS")
	log.Println("✅ Edit routes registered: /api/edit, /api/edit/composite")
}

// Edit - 마스크 기반 부분 수정 실행
func (h *EditHandler) Edit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EditResponse{
			Success: false,
			Message: "Invalid request format",
		})
		return
	}

	if req.Prompt == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EditResponse{
			Success: false,
			Message: "Missing required field: prompt",
		})
		return
	}

	if req.Image == "" && req.Composite == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EditResponse{
			Success: false,
			Message: "Either image or composite is required",
		})
		return
	}

	log.Printf("🖌️  Edit request: prompt=%.60q, strokes=%d, preflattened=%v",
		req.Prompt, len(req.Strokes), req.Composite != "")

	// 마스크 합성
	composite, err := h.service.FlattenComposite(req)
	if err != nil {
		log.Printf("❌ Failed to flatten composite: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, mask.ErrNoSource) {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(EditResponse{
			Success: false,
			Message: "Failed to build the masked composite",
		})
		return
	}

	// 일일 사용량 차감
	ctx := r.Context()
	if err := h.service.Meter().ConsumeImage(ctx); err != nil {
		if errors.Is(err, usage.ErrDailyLimit) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(EditResponse{
				Success:  false,
				Message:  "Daily generation limit reached. Try again tomorrow.",
				Category: string(gemini.ErrorQuota),
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(EditResponse{
			Success: false,
			Message: "Failed to verify daily usage",
		})
		return
	}

	// 수정 수행
	imageURL, text, err := h.service.PerformEdit(ctx, composite, req.Prompt)
	if err != nil {
		log.Printf("❌ Edit failed: %v", err)

		if refundErr := h.service.Meter().Refund(ctx, 1); refundErr != nil {
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
		json.NewEncoder(w).Encode(EditResponse{
			Success:  false,
			Message:  category.UserMessage(),
			Category: string(category),
		})
		return
	}

	h.service.RecordHistory(ctx, req, imageURL)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(EditResponse{
		Success:  true,
		ImageURL: imageURL,
		Text:     text,
	})
}

// Composite - 합성 결과 미리보기 (API 호출 없이 평탄화만 수행)
func (h *EditHandler) Composite(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EditResponse{
			Success: false,
			Message: "Invalid request format",
		})
		return
	}

	composite, err := h.service.FlattenComposite(req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, mask.ErrNoSource) {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(EditResponse{
			Success: false,
			Message: "Failed to build the masked composite",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(EditResponse{
		Success:  true,
		ImageURL: composite,
	})
}
