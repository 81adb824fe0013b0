package internal

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionState 連線階段狀態
//
// 有限狀態機：
//
//	connecting → selecting_room → waiting_for_opponent → playing → terminated
//
// terminated 可以從任何狀態到達（主動斷線、超時、對手通知），
// 且每個連線階段恰好到達一次。清理不是各條提前返回路徑各自
// 記得的約定，而是 Run 單一出口上的結構性保證。
type SessionState string

const (
	StateConnecting SessionState = "connecting"
	StateSelecting  SessionState = "selecting_room"
	StateWaiting    SessionState = "waiting_for_opponent"
	StatePlaying    SessionState = "playing"
	StateTerminated SessionState = "terminated"
)

// Session 一條連線的完整生命週期
//
// 系統設計考量：
//
//  1. 每條連線一個 goroutine：
//     連線階段獨占自己的 socket 讀寫兩端與本地答案工作集，
//     跨連線共享的只有 Ledger 與 Registry 兩個帶鎖結構。
//
//  2. 三事件源的公平多工：
//     對局中同時等待（a）對端訊框（b）自己的收件通道
//     （c）心跳滴答，select 保證任一就緒即被處理，
//     不會讓網路讀取餓死心跳或收件投遞。
//
//  3. 讀取不設搶占式取消：
//     阻塞中的網路讀依賴清理時的 conn.Close 解除，
//     對端先走時由對端的關閉訊框或本方的心跳逾時兜底。
type Session struct {
	id       string
	conn     *websocket.Conn
	cfg      *Config
	ledger   *Ledger
	registry *Registry
	provider RoundProvider
	logger   *slog.Logger

	state SessionState
	room  string // 已佔用的房間，空字串表示尚未佔房
	seat  int    // 1 或 2，入座時指派

	outbox    chan string         // 對手與計時器推送訊息的收件通道
	remaining map[string]struct{} // 剩餘答案的本地工作集（僅本連線存取）
	prompt    string

	mu       sync.Mutex // 保護 lastPong（Pong 處理器在讀取 goroutine 執行）
	lastPong time.Time

	done        chan struct{} // 清理時關閉，解除讀取 goroutine 的投遞阻塞
	cleanupOnce sync.Once
}

// NewSession 建立連線階段
func NewSession(conn *websocket.Conn, cfg *Config, ledger *Ledger, registry *Registry, provider RoundProvider, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		cfg:      cfg,
		ledger:   ledger,
		registry: registry,
		provider: provider,
		logger:   logger.With("session_id", id),
		state:    StateConnecting,
		outbox:   make(chan string, cfg.Game.OutboxSize),
		lastPong: time.Now(),
		done:     make(chan struct{}),
	}
}

// Run 驅動連線階段直到終止
//
// 單一出口：無論從哪個狀態退出，defer 的 cleanup 都會執行，
// 且冪等（第二次執行是安全的 no-op）。
func (s *Session) Run() {
	defer s.cleanup()

	s.conn.SetPongHandler(func(string) error {
		s.mu.Lock()
		s.lastPong = time.Now()
		s.mu.Unlock()
		return nil
	})

	// 讀取 goroutine：對端的所有文字訊框經此通道進入狀態機，
	// 讀取錯誤（含對端關閉訊框）以通道關閉呈現
	frames := make(chan string)
	go s.readLoop(frames)

	if !s.selectRoom(frames) {
		return
	}
	if !s.joinMatch() {
		return
	}
	if s.seat == 1 {
		if !s.waitForOpponent(frames) {
			return
		}
	}
	if !s.startRound() {
		return
	}
	s.play(frames)
}

// readLoop 把對端訊框送入通道，任何讀取錯誤都以關閉通道收尾
func (s *Session) readLoop(frames chan<- string) {
	defer close(frames)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		select {
		case frames <- string(data):
		case <-s.done:
			return
		}
	}
}

// selectRoom 選房階段
//
// 連上後立即送出佔用快照；之後客戶端要麼選房、要麼請求刷新。
// 刷新次數超過上限（客戶端每 5 秒輪詢一次，6 次約 30 秒）
// 即強制斷線，避免殭屍連線佔著選房階段不走。
func (s *Session) selectRoom(frames <-chan string) bool {
	s.state = StateSelecting

	if err := s.write(SnapshotFrame(s.ledger.Snapshot())); err != nil {
		return false
	}

	refreshes := 0
	for {
		frame, ok := <-frames
		if !ok {
			s.logger.Info("選房階段對端離線")
			return false
		}

		if IsRefresh(frame) {
			refreshes++
			if refreshes > s.cfg.Game.MaxRefreshes {
				s.logger.Info("選房逾時，強制斷線", "refreshes", refreshes)
				return false
			}
			if err := s.write(SnapshotFrame(s.ledger.Snapshot())); err != nil {
				return false
			}
			continue
		}

		seat, err := s.ledger.TryClaim(frame)
		switch err {
		case nil:
			s.room = frame
			s.logger.Info("佔房成功", "room", s.room, "occupancy", seat)
			return true
		case ErrRoomFull:
			// 容量不足不是錯誤：回覆最新快照讓客戶端改選
			if werr := s.write(SnapshotFrame(s.ledger.Snapshot())); werr != nil {
				return false
			}
		default:
			// 協議錯誤：記錄並丟棄，連線保持開啟
			s.logger.Warn("無效的選房輸入", "frame", frame)
		}
	}
}

// joinMatch 入座對局並載入回合資料
//
// 座位編號以註冊表鎖序為準。回合識別碼由第一個需要它的
// 連線階段惰性指派，之後雙方讀到同一回合。
func (s *Session) joinMatch() bool {
	seat, err := s.registry.Join(s.room, s.outbox)
	if err != nil {
		s.logger.Error("入座失敗", "room", s.room, "error", err)
		return false
	}
	s.seat = seat
	s.logger = s.logger.With("room", s.room, "seat", s.seat)

	// 臨界區內只指派識別碼，讀檔在出鎖後進行
	var roundID int
	s.registry.Mutate(s.room, func(m *Match) {
		if m.RoundID == 0 {
			m.RoundID = RandRoundID(s.cfg.Words.MinRound, s.cfg.Words.MaxRound)
		}
		roundID = m.RoundID
	})

	round, err := s.provider.Lookup(roundID)
	if err != nil {
		// 回合資料缺失對這場對局是致命的，但不影響其他對局
		s.logger.Error("回合資料載入失敗", "round_id", roundID, "error", err)
		return false
	}

	found := s.registry.Mutate(s.room, func(m *Match) {
		if m.Prompt == "" {
			m.Prompt = round.Prompt
			m.Remaining = make(map[string]struct{}, len(round.Answers))
			for _, answer := range round.Answers {
				m.Remaining[answer] = struct{}{}
			}
		}
		s.prompt = m.Prompt
	})
	if !found {
		return false
	}

	s.remaining = make(map[string]struct{}, len(round.Answers))
	for _, answer := range round.Answers {
		s.remaining[answer] = struct{}{}
	}
	return true
}

// waitForOpponent 等待對手入座（僅座位 1 會經過此狀態）
//
// 以固定間隔輪詢註冊表，直到兩個座位都就座或等待上限到期。
// 上限到期即中止：釋放房間、移除單邊對局、斷線。
func (s *Session) waitForOpponent(frames <-chan string) bool {
	s.state = StateWaiting

	ticker := time.NewTicker(s.cfg.Game.PairPollInterval.Std())
	defer ticker.Stop()
	deadline := time.NewTimer(s.cfg.Game.PairWait.Std())
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			both := false
			found := s.registry.Mutate(s.room, func(m *Match) {
				both = m.BothSeated()
			})
			if !found {
				// 對局在等待期間被清走（如對手入座後立即離線）
				s.logger.Info("等待期間對局已不存在")
				return false
			}
			if both {
				return true
			}
		case <-deadline.C:
			s.logger.Info("等待對手逾時", "waited", s.cfg.Game.PairWait)
			return false
		case _, ok := <-frames:
			if !ok {
				s.logger.Info("等待對手期間對端離線")
				return false
			}
			// 配對完成前的訊框不屬於任何操作：丟棄
			s.logger.Debug("丟棄配對前訊框")
		}
	}
}

// startRound 送出開局訊框；座位 2 的入座使對局成形，由它啟動唯一的計時器
//
// 僅輪詢發現「雙方就座」的一方（座位 1）不啟動計時器，
// 保證每場對局恰好一個計時器。
func (s *Session) startRound() bool {
	if err := s.write(StartFrame(s.prompt)); err != nil {
		s.notifyOpponent(FinishGone)
		return false
	}
	if s.seat == 2 {
		s.registry.StartTimer(s.room, (s.cfg.Game.MatchDuration + s.cfg.Game.StartGrace).Std())
	}
	return true
}

// play 對局主迴圈
//
// 三個事件源的公平 select，每輪恰好處理一個就緒事件：
//  1. 對端訊框：猜測走計分，關閉／讀取錯誤視為對端離線；
//  2. 收件通道：對手或計時器推送的訊息，原樣轉發上線路，
//     終局訊框轉發後即結束；
//  3. 心跳滴答：逾未收到 Pong 視為對端斷線，否則送出探測。
func (s *Session) play(frames <-chan string) {
	s.state = StatePlaying

	s.mu.Lock()
	s.lastPong = time.Now()
	s.mu.Unlock()

	heartbeat := time.NewTicker(s.cfg.Game.PingInterval.Std())
	defer heartbeat.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				// 對端關閉或讀取失敗：盡力通知對手後終止
				s.logger.Info("對端離線")
				s.notifyOpponent(FinishGone)
				return
			}
			word, isGuess := ParseGuess(frame)
			if !isGuess {
				s.logger.Warn("丟棄無法解析的訊框", "frame", frame)
				continue
			}
			if !s.handleGuess(word) {
				return
			}

		case msg := <-s.outbox:
			if err := s.write(msg); err != nil {
				s.notifyOpponent(FinishGone)
				return
			}
			if IsFinish(msg) {
				s.logger.Info("對局結束", "frame", msg)
				return
			}

		case <-heartbeat.C:
			s.mu.Lock()
			last := s.lastPong
			s.mu.Unlock()

			if time.Since(last) > s.cfg.Game.LivenessWindow.Std() {
				s.logger.Warn("心跳逾時，視為對端斷線", "last_pong", last)
				s.notifyOpponent(FinishGone)
				return
			}
			if err := s.writePing(); err != nil {
				s.notifyOpponent(FinishGone)
				return
			}
		}
	}
}

// handleGuess 處理一次猜測，回傳 false 表示連線階段應終止
//
// 本地工作集先做過濾：不在集合裡的詞直接回覆當前比分
// （表示「未得分」，不是錯誤）。命中的詞在註冊表鎖內對
// 共享集合提交——若對手在同一瞬間先提交了同一個詞，
// 先取得鎖者得分，本方走未得分路徑。
func (s *Session) handleGuess(word string) bool {
	if _, ok := s.remaining[word]; !ok {
		return s.echoScore()
	}
	delete(s.remaining, word)

	var (
		credited bool
		score    int
		opponent chan<- string
	)
	found := s.registry.Mutate(s.room, func(m *Match) {
		credited, score = m.CreditGuess(s.seat, word)
		opponent = m.Opponent(s.seat)
	})
	if !found {
		// 對局已被對手的清理移除：告知本端後終止
		_ = s.write(FinishGone)
		return false
	}

	if err := s.write(ScoreFrame(score)); err != nil {
		s.notifyOpponent(FinishGone)
		return false
	}

	if credited {
		if opponent == nil {
			_ = s.write(FinishGone)
			return false
		}
		deliver(opponent, OpponentScoreFrame(score))
	}
	return true
}

// echoScore 回覆發送者當前比分（未得分的確認）
func (s *Session) echoScore() bool {
	var score int
	found := s.registry.Mutate(s.room, func(m *Match) {
		score = m.Score(s.seat)
	})
	if !found {
		_ = s.write(FinishGone)
		return false
	}
	if err := s.write(ScoreFrame(score)); err != nil {
		s.notifyOpponent(FinishGone)
		return false
	}
	return true
}

// notifyOpponent 盡力把訊息推入對手的收件通道（對手不在時為 no-op）
func (s *Session) notifyOpponent(msg string) {
	var opponent chan<- string
	s.registry.Mutate(s.room, func(m *Match) {
		opponent = m.Opponent(s.seat)
	})
	deliver(opponent, msg)
}

// write 送出文字訊框，每次寫入都帶期限
func (s *Session) write(frame string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// writePing 送出活性探測
func (s *Session) writePing() error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

const writeWait = 10 * time.Second

// cleanup 終局清理
//
// 冪等性設計：以「對局條目是否仍存在」判斷自己是否是第一個
// 清理者。條目仍在（自己先到）→ 移除對局並歸零房間佔用；
// 條目已不在（對手先清過）→ 完全 no-op，不會把已供新配對
// 使用的房間再次歸零。
func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.state = StateTerminated
		close(s.done)

		if s.room != "" {
			if s.registry.Remove(s.room) {
				s.ledger.Release(s.room)
			}
		}

		// 盡力送出關閉訊框後關閉連線；關閉同時解除仍阻塞的讀取
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()

		s.logger.Info("連線階段結束")
	})
}

// State 回傳目前狀態（診斷用）
func (s *Session) State() SessionState {
	return s.state
}
