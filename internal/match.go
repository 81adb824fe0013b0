package internal

import "errors"

// MatchState 對局狀態
//
// 有限狀態機：
//
//	pending → running → resolved
//
// 狀態轉換規則：
//   - pending → running：兩個座位都已就座，計時器啟動
//   - running → resolved：計時器到期，結算比分
//
// 對局也可能在任一狀態直接被移除（雙方提前離線），
// 移除後到期的計時器必須視為 no-op。
type MatchState string

const (
	MatchPending  MatchState = "pending"
	MatchRunning  MatchState = "running"
	MatchResolved MatchState = "resolved"
)

var ErrMatchFull = errors.New("對局座位已滿")

// Match 一場進行中的對局
//
// Match 本身不帶鎖：所有欄位都由 Registry 的單一互斥鎖保護，
// 方法只能在 Registry.Mutate 的臨界區內呼叫。
// 這維持了「一把鎖守護整張註冊表」的粗粒度紀律，
// 臨界區內只有記憶體操作，無任何 I/O。
type Match struct {
	Seat1 chan<- string // 座位 1 的收件通道（未就座時為 nil）
	Seat2 chan<- string // 座位 2 的收件通道

	Score1 int
	Score2 int

	RoundID int    // 0 表示尚未指派
	Prompt  string // 該回合的亂序題目

	// Remaining 共享的剩餘答案集合。
	// 扣題在此集合上提交，同一個詞被任一座位答對後，
	// 任何人都不能再次得分（先提交者得分）。
	Remaining map[string]struct{}

	State MatchState
}

// attach 把收件通道掛到第一個空座位，回傳座位編號
func (m *Match) attach(outbox chan<- string) (int, error) {
	switch {
	case m.Seat1 == nil:
		m.Seat1 = outbox
		return 1, nil
	case m.Seat2 == nil:
		m.Seat2 = outbox
		return 2, nil
	default:
		return 0, ErrMatchFull
	}
}

// BothSeated 兩個座位是否都已就座
func (m *Match) BothSeated() bool {
	return m.Seat1 != nil && m.Seat2 != nil
}

// Opponent 回傳指定座位的對手收件通道（對手不在時為 nil）
func (m *Match) Opponent(seat int) chan<- string {
	if seat == 1 {
		return m.Seat2
	}
	return m.Seat1
}

// Score 回傳指定座位的目前比分
func (m *Match) Score(seat int) int {
	if seat == 1 {
		return m.Score1
	}
	return m.Score2
}

// CreditGuess 在共享答案集合上提交一次猜測
//
// 命中時把詞從集合移除、依詞長加分；未命中（包括已被
// 任一座位答對過）不改變任何狀態。回傳是否得分與該座位
// 提交後的比分。
func (m *Match) CreditGuess(seat int, word string) (bool, int) {
	_, ok := m.Remaining[word]
	if ok {
		delete(m.Remaining, word)
		if seat == 1 {
			m.Score1 += len(word)
		} else {
			m.Score2 += len(word)
		}
	}
	return ok, m.Score(seat)
}

// Outcome 由兩座位的比分計算終局訊框
//
// 純函數：分高者收到 f:u、分低者收到 f:o，平手雙方都收到 f:d。
func Outcome(score1, score2 int) (seat1Msg, seat2Msg string) {
	switch {
	case score1 > score2:
		return FinishWin, FinishLose
	case score2 > score1:
		return FinishLose, FinishWin
	default:
		return FinishDraw, FinishDraw
	}
}
