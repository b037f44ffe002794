package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"vision-studio-server/modules/common/config"
	"vision-studio-server/modules/common/history"
	redisutil "vision-studio-server/modules/common/redis"
	"vision-studio-server/modules/common/storage"
	"vision-studio-server/modules/common/usage"
	"vision-studio-server/modules/describe"
	"vision-studio-server/modules/edit"
	"vision-studio-server/modules/generate"
	historymod "vision-studio-server/modules/history"
	"vision-studio-server/modules/templates"
	"vision-studio-server/modules/video"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 개발 환경용 - 프로덕션에서는 도메인 체크 필요
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client - WebSocket 연결된 스튜디오 클라이언트
type Client struct {
	conn      *websocket.Conn
	sessionId string
	send      chan []byte
}

// Session - 같은 스튜디오 화면을 보고 있는 클라이언트 그룹
type Session struct {
	id           string
	clients      map[*Client]bool
	mutex        sync.RWMutex
	createdAt    time.Time
	lastActivity time.Time
}

// SessionManager - 전체 세션 관리
type SessionManager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	metrics  *ServerMetrics
}

// ServerMetrics - 서버 상태 지표
type ServerMetrics struct {
	TotalConnections  int64     `json:"totalConnections"`
	ActiveConnections int64     `json:"activeConnections"`
	TotalSessions     int64     `json:"totalSessions"`
	ActiveSessions    int64     `json:"activeSessions"`
	MessagesSent      int64     `json:"messagesSent"`
	StartTime         time.Time `json:"startTime"`
	mutex             sync.RWMutex
}

// Message - WebSocket 메시지 포맷
type Message struct {
	Type      string `json:"type"`
	JobID     string `json:"jobId,omitempty"`
	Status    string `json:"status,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func newSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		metrics: &ServerMetrics{
			StartTime: time.Now(),
		},
	}
}

func (sm *SessionManager) getOrCreateSession(sessionId string) *Session {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	session, exists := sm.sessions[sessionId]
	if !exists {
		session = &Session{
			id:           sessionId,
			clients:      make(map[*Client]bool),
			createdAt:    time.Now(),
			lastActivity: time.Now(),
		}
		sm.sessions[sessionId] = session

		sm.metrics.mutex.Lock()
		sm.metrics.TotalSessions++
		sm.metrics.ActiveSessions++
		sm.metrics.mutex.Unlock()

		log.Printf("🆕 New session created: %s", sessionId)
	}
	return session
}

func (sm *SessionManager) addClient(client *Client) {
	session := sm.getOrCreateSession(client.sessionId)

	session.mutex.Lock()
	session.clients[client] = true
	session.lastActivity = time.Now()
	clientCount := len(session.clients)
	session.mutex.Unlock()

	sm.metrics.mutex.Lock()
	sm.metrics.TotalConnections++
	sm.metrics.ActiveConnections++
	sm.metrics.mutex.Unlock()

	log.Printf("👤 Client joined session %s (%d clients)", client.sessionId, clientCount)
}

func (sm *SessionManager) removeClient(client *Client) {
	sm.mutex.RLock()
	session, exists := sm.sessions[client.sessionId]
	sm.mutex.RUnlock()
	if !exists {
		return
	}

	session.mutex.Lock()
	if _, ok := session.clients[client]; ok {
		delete(session.clients, client)
		close(client.send)
	}
	remaining := len(session.clients)
	session.lastActivity = time.Now()
	session.mutex.Unlock()

	sm.metrics.mutex.Lock()
	sm.metrics.ActiveConnections--
	sm.metrics.mutex.Unlock()

	log.Printf("👋 Client left session %s (%d remaining)", client.sessionId, remaining)
}

// broadcastToAll - 모든 세션의 모든 클라이언트에게 전송
func (sm *SessionManager) broadcastToAll(msg Message) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("❌ Broadcast marshal failed: %v", err)
		return
	}

	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	sent := 0
	for _, session := range sm.sessions {
		session.mutex.RLock()
		for client := range session.clients {
			select {
			case client.send <- data:
				sent++
			default:
				// 느린 클라이언트는 건너뜀 (readPump 종료 시 정리됨)
			}
		}
		session.mutex.RUnlock()
	}

	if sent > 0 {
		sm.metrics.mutex.Lock()
		sm.metrics.MessagesSent += int64(sent)
		sm.metrics.mutex.Unlock()
	}
}

// cleanupEmptySessions - 빈 세션 제거
func (sm *SessionManager) cleanupEmptySessions() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for id, session := range sm.sessions {
		session.mutex.RLock()
		empty := len(session.clients) == 0
		idle := time.Since(session.lastActivity) > 5*time.Minute
		session.mutex.RUnlock()

		if empty && idle {
			delete(sm.sessions, id)
			sm.metrics.mutex.Lock()
			sm.metrics.ActiveSessions--
			sm.metrics.mutex.Unlock()
			log.Printf("🧹 Empty session removed: %s", id)
		}
	}
}

func (sm *SessionManager) startCleanupRoutine() {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for range ticker.C {
			sm.cleanupEmptySessions()
		}
	}()
}

func (sm *SessionManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionId := r.URL.Query().Get("session")
	if sessionId == "" {
		sessionId = "default"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:      conn,
		sessionId: sessionId,
		send:      make(chan []byte, 256),
	}

	sm.addClient(client)

	go client.writePump()
	go client.readPump(sm)
}

func (c *Client) readPump(sm *SessionManager) {
	defer func() {
		sm.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		// 클라이언트 → 서버 메시지는 현재 keep-alive 용도만 사용
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ WebSocket read error: %v", err)
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enableCORS - CORS 미들웨어
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Access-Code")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UnixMilli(),
	})
}

// newAdapter - 설정된 백엔드에 맞는 슬롯 저장소 생성
func newAdapter(cfg *config.Config) (storage.Adapter, error) {
	switch cfg.StorageBackend {
	case "redis":
		rdb := redisutil.Connect(cfg)
		if rdb == nil {
			log.Println("⚠️ Redis unavailable, falling back to memory storage")
			return storage.NewMemory(cfg.SlotQuotaBytes), nil
		}
		return storage.NewRedis(rdb, cfg.SlotQuotaBytes), nil
	case "supabase":
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseSlotTable, cfg.SlotQuotaBytes)
	default:
		return storage.NewMemory(cfg.SlotQuotaBytes), nil
	}
}

func main() {
	log.Println("🚀 Vision Studio Server starting...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Config load failed: %v", err)
	}

	// 히스토리 슬롯 저장소
	adapter, err := newAdapter(cfg)
	if err != nil {
		log.Fatalf("❌ Storage init failed: %v", err)
	}
	store := history.NewStore(adapter)
	meter := usage.NewMeter(adapter, "dailyUsage", cfg.DailyGenerationLimit, cfg.VideoUsageCost)

	// 서비스 구성
	generateService := generate.NewService(store, meter)
	editService := edit.NewService(store, meter)
	describeService := describe.NewService()
	templatesService := templates.NewService(adapter, store, generateService)
	historyService := historymod.NewService(store, adapter)

	// WebSocket 세션 허브
	sessionManager := newSessionManager()
	sessionManager.startCleanupRoutine()

	// Video job queue (Redis 필수 - 없으면 비디오 기능 비활성화)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var videoService *video.Service
	queueRdb := redisutil.Connect(cfg)
	if queueRdb != nil {
		videoService = video.NewService(queueRdb, meter)
		videoService.SetNotifier(func(jobID, status string) {
			sessionManager.broadcastToAll(Message{
				Type:   "job_status",
				JobID:  jobID,
				Status: status,
			})
		})
		go videoService.StartWorker(ctx)
		log.Println("✅ Video worker started")
	} else {
		log.Println("⚠️ Redis unavailable, video generation disabled")
	}

	// 라우터 구성
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", sessionManager.handleWebSocket)

	generate.NewGenerateHandler(generateService).RegisterRoutes(r)
	edit.NewEditHandler(editService).RegisterRoutes(r)
	describe.NewDescribeHandler(describeService).RegisterRoutes(r)
	templates.NewTemplatesHandler(templatesService, meter).RegisterRoutes(r)
	historymod.NewHistoryHandler(historyService).RegisterRoutes(r)
	if videoService != nil {
		video.NewVideoHandler(videoService).RegisterRoutes(r)
	}

	// 일일 사용량 조회
	r.HandleFunc("/api/usage", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		remaining, err := meter.Remaining(r.Context())
		if err != nil {
			http.Error(w, "Failed to load usage", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":     cfg.DailyGenerationLimit - remaining,
			"limit":     cfg.DailyGenerationLimit,
			"remaining": remaining,
			"videoCost": meter.VideoCost(),
		})
	}).Methods("GET", "OPTIONS")

	// 서버 지표
	r.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.metrics.mutex.RLock()
		defer sessionManager.metrics.mutex.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"totalConnections":  sessionManager.metrics.TotalConnections,
			"activeConnections": sessionManager.metrics.ActiveConnections,
			"totalSessions":     sessionManager.metrics.TotalSessions,
			"activeSessions":    sessionManager.metrics.ActiveSessions,
			"messagesSent":      sessionManager.metrics.MessagesSent,
			"uptimeSeconds":     int64(time.Since(sessionManager.metrics.StartTime).Seconds()),
		})
	}).Methods("GET")

	log.Printf("🌐 Server listening on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
