package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Server 對戰服務入口
//
// 入口契約：每條升級成功的連線對應一個 Session，
// 持有共享的 Ledger 與 Registry 把手；單一連線的失敗
// 不影響監聽循環，也不影響其他連線。
type Server struct {
	cfg      *Config
	ledger   *Ledger
	registry *Registry
	provider RoundProvider
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	stopped  bool
	sessions sync.WaitGroup
}

// NewServer 建立對戰服務
func NewServer(cfg *Config, provider RoundProvider, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		ledger:   NewLedger(cfg.Game.Rooms),
		registry: NewRegistry(logger),
		provider: provider,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 生產環境應檢查來源
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Routes 設定路由
func (srv *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", srv.ServeWS)
	mux.HandleFunc("GET /health", srv.health)
	mux.HandleFunc("GET /stats", srv.stats)

	return mux
}

// ServeWS 升級連線並同步驅動一個連線階段
//
// http.Server 已為每個請求提供獨立 goroutine，
// Session.Run 直接在其中執行即是「每連線一個輕量任務」。
// 升級失敗只記錄，不影響其他連線。
func (srv *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Error("升級 WebSocket 失敗", "error", err, "remote", r.RemoteAddr)
		return
	}

	if !srv.track(conn) {
		// 服務正在關閉，不再接收新的連線階段
		_ = conn.Close()
		return
	}
	defer srv.untrack(conn)

	session := NewSession(conn, srv.cfg, srv.ledger, srv.registry, srv.provider, srv.logger)
	srv.logger.Info("WebSocket 連線建立", "remote", r.RemoteAddr)
	session.Run()
}

// track 登記連線，服務已停止時拒絕
func (srv *Server) track(conn *websocket.Conn) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.stopped {
		return false
	}
	srv.conns[conn] = struct{}{}
	srv.sessions.Add(1)
	return true
}

// untrack 註銷連線
func (srv *Server) untrack(conn *websocket.Conn) {
	srv.mu.Lock()
	delete(srv.conns, conn)
	srv.mu.Unlock()
	srv.sessions.Done()
}

// Stop 關閉所有連線階段並等待它們清理完成
func (srv *Server) Stop() {
	srv.mu.Lock()
	srv.stopped = true
	for conn := range srv.conns {
		// 關閉底層連線會解除該階段阻塞中的讀取，
		// 其自身的清理路徑負責釋放房間與對局
		_ = conn.Close()
	}
	srv.mu.Unlock()

	srv.sessions.Wait()
	srv.logger.Info("對戰服務已停止")
}

// Ledger 暴露房間帳本（診斷與測試用）
func (srv *Server) Ledger() *Ledger {
	return srv.ledger
}

// Registry 暴露對局註冊表（診斷與測試用）
func (srv *Server) Registry() *Registry {
	return srv.registry
}

// health 健康檢查
func (srv *Server) health(w http.ResponseWriter, r *http.Request) {
	srv.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (srv *Server) stats(w http.ResponseWriter, r *http.Request) {
	srv.mu.Lock()
	liveConns := len(srv.conns)
	srv.mu.Unlock()

	occupancy := make(map[string]int)
	for _, room := range srv.ledger.Rooms() {
		count, _ := srv.ledger.Occupancy(room)
		occupancy[room] = count
	}

	srv.jsonResponse(w, map[string]any{
		"connections": liveConns,
		"occupancy":   occupancy,
		"matches":     srv.registry.Stats(),
	}, http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (srv *Server) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		srv.logger.Error("編碼 JSON 失敗", "error", err)
	}
}
