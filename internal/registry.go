package internal

import (
	"log/slog"
	"sync"
	"time"
)

// Registry 對局註冊表
//
// 系統設計考量：
//
//  1. 共享可變狀態的唯一入口：
//     所有連線階段透過同一個 Registry 存取對局狀態，
//     一把互斥鎖保護整張 map（粗粒度，而非逐條目鎖）。
//     配對期間的併發寫入（兩個連線同時入座）由鎖序唯一決定：
//     先取得鎖者就是座位 1。
//
//  2. 惰性建立、終局移除：
//     對局條目在第一個座位入座時建立，在任一連線階段的
//     終局清理時移除。「條目存在」與「至少一個座位已佔用
//     且尚未清理」互為充要條件。
//
//  3. 臨界區不做 I/O：
//     Mutate 的回呼只能操作記憶體。需要讀檔或寫網路時，
//     先在臨界區取值、出鎖後再動作。
type Registry struct {
	mu      sync.Mutex
	matches map[string]*Match
	logger  *slog.Logger
}

// NewRegistry 建立對局註冊表
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		matches: make(map[string]*Match),
		logger:  logger,
	}
}

// Join 入座指定房間的對局
//
// 條目不存在時惰性建立；收件通道掛到第一個空座位。
// 回傳的座位編號由註冊表鎖的取得順序決定，
// 與訊息到達的牆鐘順序無關。
func (r *Registry) Join(room string, outbox chan<- string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.matches[room]
	if !exists {
		m = &Match{State: MatchPending}
		r.matches[room] = m
	}

	seat, err := m.attach(outbox)
	if err != nil {
		return 0, err
	}

	r.logger.Debug("玩家入座", "room", room, "seat", seat)
	return seat, nil
}

// Mutate 在鎖的保護下讀寫一場對局
//
// 對局不存在時回傳 false 且不執行回呼。
// 回呼內不得做任何 I/O，也不得再呼叫 Registry 的其他方法。
func (r *Registry) Mutate(room string, fn func(*Match)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.matches[room]
	if !exists {
		return false
	}
	fn(m)
	return true
}

// Remove 移除一場對局
//
// 回傳條目是否存在：清理路徑以此判斷自己是否是
// 第一個到達的清理者（第二次呼叫是安全的 no-op）。
func (r *Registry) Remove(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.matches[room]; !exists {
		return false
	}
	delete(r.matches, room)

	r.logger.Debug("對局已移除", "room", room)
	return true
}

// Len 回傳現存對局數
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}

// StartTimer 啟動對局計時器
//
// 系統設計：脫離單一連線生命週期的後台任務
//
// 計時器必須把終局訊息送達兩個座位，即使其中一個連線階段
// 已經先行退出，因此它不隸屬於任何一個連線階段，
// 而是以房間為鍵獨立排程的一次性任務。
//
// 兩個必要的防護：
//   - 只有「使座位 2 就座」的那一次入座可以呼叫本方法，
//     保證每場對局恰好一個計時器；
//   - 到期時對局可能早已被移除（雙方提前離線），
//     此時計時器必須是 no-op。
func (r *Registry) StartTimer(room string, d time.Duration) {
	r.mu.Lock()
	m, exists := r.matches[room]
	if !exists || m.State != MatchPending {
		r.mu.Unlock()
		return
	}
	m.State = MatchRunning
	r.mu.Unlock()

	r.logger.Info("對局計時器啟動", "room", room, "duration", d)

	go func() {
		time.Sleep(d)

		r.mu.Lock()
		m, exists := r.matches[room]
		if !exists {
			// 對局已被清理，結算取消
			r.mu.Unlock()
			return
		}
		m.State = MatchResolved
		msg1, msg2 := Outcome(m.Score1, m.Score2)
		seat1, seat2 := m.Seat1, m.Seat2
		r.mu.Unlock()

		// 出鎖後才推送，通道滿時丟棄（接收方已不再消費）
		deliver(seat1, msg1)
		deliver(seat2, msg2)

		r.logger.Info("對局結算完成", "room", room, "result_seat1", msg1, "result_seat2", msg2)
	}()
}

// deliver 非阻塞地投遞到收件通道
func deliver(outbox chan<- string, msg string) {
	if outbox == nil {
		return
	}
	select {
	case outbox <- msg:
	default:
	}
}

// Stats 統計資訊
func (r *Registry) Stats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	byState := make(map[MatchState]int)
	for _, m := range r.matches {
		byState[m.State]++
	}

	return map[string]any{
		"total_matches": len(r.matches),
		"by_state":      byState,
	}
}
