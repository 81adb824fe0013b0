package internal

import (
	"errors"
	"sync"
)

// roomCapacity 每個房間恰好兩個座位（1v1 對戰）
const roomCapacity = 2

var (
	ErrRoomUnknown = errors.New("房間不存在")
	ErrRoomFull    = errors.New("房間已滿")
)

// Ledger 房間佔用帳本
//
// 系統設計考量：
//
//  1. 固定房間集合：
//     房間在程序啟動時建立、永不銷毀，只有佔用數在變。
//     這讓配對問題退化成「對一組計數器的併發加減」，
//     不需要房間的建立／尋址／回收邏輯。
//
//  2. 粗粒度鎖：
//     一把 Mutex 保護全部計數器。臨界區只有整數比較與加減，
//     不做任何 I/O，鎖競爭成本遠低於分片帶來的複雜度。
//     座位的先後順序也由鎖的取得順序唯一決定。
//
//  3. 佔用數不變式：
//     任何時刻 0 <= count <= 2。只在成功佔位時加一，
//     只在該房間的對局完整清理時歸零。
type Ledger struct {
	mu    sync.Mutex
	order []string       // 房間的固定順序（快照依此排列）
	seats map[string]int // roomID -> 佔用數 [0, 2]
}

// NewLedger 建立房間帳本，所有房間初始為空
func NewLedger(rooms []string) *Ledger {
	l := &Ledger{
		order: make([]string, len(rooms)),
		seats: make(map[string]int, len(rooms)),
	}
	copy(l.order, rooms)
	for _, room := range rooms {
		l.seats[room] = 0
	}
	return l
}

// TryClaim 嘗試佔一個座位
//
// 成功時回傳佔位後的佔用數（即座位編號 1 或 2），
// 房間已滿時回傳 ErrRoomFull 且不改變狀態。
func (l *Ledger) TryClaim(room string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count, exists := l.seats[room]
	if !exists {
		return 0, ErrRoomUnknown
	}
	if count >= roomCapacity {
		return 0, ErrRoomFull
	}

	l.seats[room] = count + 1
	return count + 1, nil
}

// Release 歸零房間佔用
//
// 清理一旦決定就無條件歸零：房間立即可供全新的配對使用，
// 不要求兩個原座位各自釋放。
func (l *Ledger) Release(room string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seats[room]; exists {
		l.seats[room] = 0
	}
}

// Snapshot 回傳固定順序下各房間的佔用數
func (l *Ledger) Snapshot() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make([]int, len(l.order))
	for i, room := range l.order {
		counts[i] = l.seats[room]
	}
	return counts
}

// Rooms 回傳房間的固定順序
func (l *Ledger) Rooms() []string {
	rooms := make([]string, len(l.order))
	copy(rooms, l.order)
	return rooms
}

// Occupancy 回傳單一房間的佔用數
func (l *Ledger) Occupancy(room string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count, exists := l.seats[room]
	return count, exists
}
