package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"vision-studio-server/modules/common/history"
)

type HistoryHandler struct {
	service *Service
}

func NewHistoryHandler(service *Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// RegisterRoutes - 라우터에 History 엔드포인트 등록
func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/history/promote", h.Promote).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/history/{slot}", h.List).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/history/{slot}", h.Add).Methods("POST")
	r.HandleFunc("/api/history/{slot}", h.Clear).Methods("DELETE")
	r.HandleFunc("/api/history/{slot}/import", h.Import).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/history/{slot}/export", h.Export).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/history/{slot}/{id}", h.Delete).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/backup/export", h.ExportBackup).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/backup/import", h.ImportBackup).Methods("POST", "OPTIONS")
	log.Println("✅ History routes registered: /api/history/{slot}/..., /api/backup/...")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func slotFromRequest(w http.ResponseWriter, r *http.Request) (Slot, bool) {
	name := mux.Vars(r)["slot"]
	slot, ok := resolveSlot(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown history slot: "+name)
		return Slot{}, false
	}
	return slot, true
}

// List - 슬롯의 레코드 목록 조회
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	slot, ok := slotFromRequest(w, r)
	if !ok {
		return
	}

	records, err := h.service.List(r.Context(), slot)
	if err != nil {
		log.Printf("❌ Failed to load history %s: %v", slot.Key, err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"records": records,
	})
}

// Add - 레코드 추가 (id/timestamp가 없으면 서버가 채운다)
func (h *HistoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	slot, ok := slotFromRequest(w, r)
	if !ok {
		return
	}

	var record history.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}

	records, err := h.service.Add(r.Context(), slot, record)
	if err != nil {
		if errors.Is(err, history.ErrStorageFull) {
			writeError(w, http.StatusInsufficientStorage, "History storage is full; the new entry could not be saved")
			return
		}
		log.Printf("❌ Failed to add history record to %s: %v", slot.Key, err)
		writeError(w, http.StatusInternalServerError, "Failed to save history")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"records": records,
	})
}

// Delete - 레코드 하나 삭제
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	slot, ok := slotFromRequest(w, r)
	if !ok {
		return
	}

	records, err := h.service.Delete(r.Context(), slot, mux.Vars(r)["id"])
	if err != nil {
		log.Printf("❌ Failed to delete from %s: %v", slot.Key, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete history record")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"records": records,
	})
}

// Clear - 슬롯 전체 비우기
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	slot, ok := slotFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), slot); err != nil {
		log.Printf("❌ Failed to clear %s: %v", slot.Key, err)
		writeError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

// Import - 히스토리 import (ID 기준 병합)
// 형식 오류와 "새 항목 없음"을 구분해 응답한다
func (h *HistoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	slot, ok := slotFromRequest(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	added, err := h.service.Import(r.Context(), slot, body)
	if err != nil {
		if errors.Is(err, history.ErrInvalidImport) {
			writeError(w, http.StatusBadRequest, "Invalid file format")
			return
		}
		log.Printf("❌ Failed to import into %s: %v", slot.Key, err)
		writeError(w, http.StatusInternalServerError, "Failed to import history")
		return
	}

	message := fmt.Sprintf("%d new record(s) imported", added)
	if added == 0 {
		message = "No new records imported (existing entries were kept)"
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"added":   added,
		"message": message,
	})
}

// Export - 히스토리 export (첨부파일 다운로드)
func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	slotName := mux.Vars(r)["slot"]
	slot, ok := resolveSlot(slotName)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusNotFound, "Unknown history slot: "+slotName)
		return
	}

	data, err := h.service.Export(r.Context(), slot)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusInternalServerError, "Failed to export history")
		return
	}
	if data == nil {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusNotFound, "The history is empty")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slot.Key+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Promote - 레코드를 메인/보관 슬롯으로 승격
func (h *HistoryHandler) Promote(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req PromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	slot, ok := resolveSlot(req.FromSlot)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown history slot: "+req.FromSlot)
		return
	}

	added, err := h.service.Promote(r.Context(), slot, req.RecordID)
	if err != nil {
		log.Printf("❌ Promote failed: %v", err)
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}

	message := "Archived!"
	if added == 0 {
		message = "Already archived"
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"added":   added,
		"message": message,
	})
}

// ExportBackup - 전체 데이터 백업 다운로드
func (h *HistoryHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	backup, err := h.service.ExportBackup(r.Context())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		log.Printf("❌ Backup export failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to export backup")
		return
	}
	if len(backup) == 0 {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusNotFound, "There is no data to back up")
		return
	}

	filename := fmt.Sprintf("studio-backup-%s.json", time.Now().Format("2006-01-02"))
	data, _ := json.MarshalIndent(backup, "", "  ")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportBackup - 백업 복원 (기존 데이터를 덮어쓴다)
func (h *HistoryHandler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	restored, err := h.service.ImportBackup(r.Context(), body)
	if err != nil {
		if errors.Is(err, history.ErrInvalidImport) {
			writeError(w, http.StatusBadRequest, "The backup file looks invalid")
			return
		}
		log.Printf("❌ Backup import failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to restore backup")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"restored": restored,
		"message":  fmt.Sprintf("%d slot(s) restored", restored),
	})
}
