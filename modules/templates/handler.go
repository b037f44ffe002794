package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"vision-studio-server/modules/common/config"
	"vision-studio-server/modules/common/gemini"
	"vision-studio-server/modules/common/usage"
)

type TemplatesHandler struct {
	service *Service
	meter   *usage.Meter
}

func NewTemplatesHandler(service *Service, meter *usage.Meter) *TemplatesHandler {
	return &TemplatesHandler{service: service, meter: meter}
}

// RegisterRoutes - 라우터에 Templates 엔드포인트 등록
func (h *TemplatesHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/templates/{set}", h.ListItems).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/templates/{set}", h.AddItem).Methods("POST")
	r.HandleFunc("/api/templates/{set}/import", h.ImportItems).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/templates/{set}/export", h.ExportItems).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/templates/{set}/generate", h.Generate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/templates/{set}/{itemId}", h.DeleteItem).Methods("DELETE", "OPTIONS")
	log.Println("✅ Templates routes registered: /api/templates/{set}/...")
}

// checkAccessCode - 관리 작업 접근 코드 확인 (설정돼 있을 때만)
func checkAccessCode(r *http.Request) bool {
	cfg := config.GetConfig()
	if cfg.StudioAccessCode == "" {
		return true
	}
	return r.Header.Get("X-Access-Code") == cfg.StudioAccessCode
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// ListItems - 세트의 아이템 목록 (내장 + 커스텀)
func (h *TemplatesHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	setName := mux.Vars(r)["set"]
	items, err := h.service.LoadItems(r.Context(), setName)
	if err != nil {
		if errors.Is(err, ErrUnknownSet) {
			writeError(w, http.StatusNotFound, "Unknown template set: "+setName)
			return
		}
		log.Printf("❌ Failed to load items: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load template items")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ItemsResponse{Success: true, Items: items})
}

// AddItem - 커스텀 아이템 추가
func (h *TemplatesHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkAccessCode(r) {
		writeError(w, http.StatusForbidden, "Invalid access code")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Title == "" || req.Template == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: title, template")
		return
	}

	setName := mux.Vars(r)["set"]
	item, err := h.service.AddItem(r.Context(), setName, req)
	if err != nil {
		if errors.Is(err, ErrUnknownSet) {
			writeError(w, http.StatusNotFound, "Unknown template set: "+setName)
			return
		}
		log.Printf("❌ Failed to add item: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to add template item")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"item":    item,
	})
}

// DeleteItem - 커스텀 아이템 삭제
func (h *TemplatesHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if !checkAccessCode(r) {
		writeError(w, http.StatusForbidden, "Invalid access code")
		return
	}

	vars := mux.Vars(r)
	if err := h.service.DeleteItem(r.Context(), vars["set"], vars["itemId"]); err != nil {
		if errors.Is(err, ErrUnknownSet) {
			writeError(w, http.StatusNotFound, "Unknown template set: "+vars["set"])
			return
		}
		writeError(w, http.StatusNotFound, "Custom item not found")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

// ImportItems - 커스텀 아이템 import (JSON 배열 본문)
func (h *TemplatesHandler) ImportItems(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if !checkAccessCode(r) {
		writeError(w, http.StatusForbidden, "Invalid access code")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	setName := mux.Vars(r)["set"]
	added, err := h.service.ImportItems(r.Context(), setName, body)
	if err != nil {
		if errors.Is(err, ErrUnknownSet) {
			writeError(w, http.StatusNotFound, "Unknown template set: "+setName)
			return
		}
		if errors.Is(err, ErrInvalidItems) {
			writeError(w, http.StatusBadRequest, "Invalid file format: each item needs a title and a template")
			return
		}
		log.Printf("❌ Failed to import items: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to import template items")
		return
	}

	message := fmt.Sprintf("%d item(s) imported", added)
	if added == 0 {
		message = "No new items imported (items with existing titles were skipped)"
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"added":   added,
		"message": message,
	})
}

// ExportItems - 커스텀 아이템 export (첨부파일 다운로드)
func (h *TemplatesHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	setName := mux.Vars(r)["set"]
	data, err := h.service.ExportItems(r.Context(), setName)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		if errors.Is(err, ErrUnknownSet) {
			writeError(w, http.StatusNotFound, "Unknown template set: "+setName)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to export template items")
		return
	}
	if data == nil {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusNotFound, "There are no custom items to export")
		return
	}

	set := Sets[setName]
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", set.ItemsKey+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Generate - 템플릿 기반 이미지 생성
func (h *TemplatesHandler) Generate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.ItemID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: itemId, text")
		return
	}

	setName := mux.Vars(r)["set"]
	log.Printf("🧩 Template generate: set=%s, item=%s, text=%.40q", setName, req.ItemID, req.Text)

	ctx := r.Context()
	if err := h.meter.ConsumeImage(ctx); err != nil {
		if errors.Is(err, usage.ErrDailyLimit) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(GenerateItemResponse{
				Success:  false,
				Message:  "Daily generation limit reached. Try again tomorrow.",
				Category: string(gemini.ErrorQuota),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify daily usage")
		return
	}

	finalPrompt, imageURLs, err := h.service.Generate(ctx, setName, req)
	if err != nil {
		if refundErr := h.meter.Refund(ctx, 1); refundErr != nil {
			log.Printf("⚠️  Failed to refund usage: %v", refundErr)
		}

		if errors.Is(err, ErrUnknownSet) {
			writeError(w, http.StatusNotFound, "Unknown template set: "+setName)
			return
		}

		log.Printf("❌ Template generation failed: %v", err)
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
		json.NewEncoder(w).Encode(GenerateItemResponse{
			Success:     false,
			FinalPrompt: finalPrompt,
			Message:     category.UserMessage(),
			Category:    string(category),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(GenerateItemResponse{
		Success:     true,
		FinalPrompt: finalPrompt,
		ImageURLs:   imageURLs,
	})
}
