package describe

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"vision-studio-server/modules/common/gemini"
)

type DescribeHandler struct {
	service *Service
}

func NewDescribeHandler(service *Service) *DescribeHandler {
	return &DescribeHandler{service: service}
}

// RegisterRoutes - 라우터에 Describe 엔드포인트 등록
func (h *DescribeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/describe", h.Describe).Methods("POST", "OPTIONS")
	log.Println("✅ Describe routes registered: /api/describe")
}

// Describe - 이미지 설명 요청 처리
// 설명은 일일 생성 카운터를 소모하지 않는다 (이미지를 만들지 않으므로)
func (h *DescribeHandler) Describe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req DescribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(DescribeResponse{
			Success: false,
			Message: "Invalid request format",
		})
		return
	}

	if req.Image == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(DescribeResponse{
			Success: false,
			Message: "Missing required field: image",
		})
		return
	}

	prompt, err := h.service.DescribeImage(r.Context(), req)
	if err != nil {
		log.Printf("❌ Describe failed: %v", err)

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
		json.NewEncoder(w).Encode(DescribeResponse{
			Success:  false,
			Message:  category.UserMessage(),
			Category: string(category),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(DescribeResponse{
		Success: true,
		Prompt:  prompt,
	})
}
