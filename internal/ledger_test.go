package internal_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/koopa0/system-design/14-scramble-duel/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLedger 測試建立房間帳本
func TestNewLedger(t *testing.T) {
	ledger := internal.NewLedger([]string{"a", "b", "c", "d"})

	assert.Equal(t, []string{"a", "b", "c", "d"}, ledger.Rooms())
	assert.Equal(t, []int{0, 0, 0, 0}, ledger.Snapshot())

	count, exists := ledger.Occupancy("a")
	assert.True(t, exists)
	assert.Zero(t, count)
}

// TestLedger_TryClaim 測試佔位
func TestLedger_TryClaim(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(l *internal.Ledger)
		room         string
		expectedSeat int
		expectedErr  error
	}{
		{
			name:         "claim empty room returns seat 1",
			setup:        func(l *internal.Ledger) {},
			room:         "a",
			expectedSeat: 1,
		},
		{
			name: "second claim returns seat 2",
			setup: func(l *internal.Ledger) {
				_, err := l.TryClaim("a")
				require.NoError(t, err)
			},
			room:         "a",
			expectedSeat: 2,
		},
		{
			name: "full room returns error without mutation",
			setup: func(l *internal.Ledger) {
				l.TryClaim("b")
				l.TryClaim("b")
			},
			room:        "b",
			expectedErr: internal.ErrRoomFull,
		},
		{
			name:        "unknown room",
			setup:       func(l *internal.Ledger) {},
			room:        "z",
			expectedErr: internal.ErrRoomUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := internal.NewLedger([]string{"a", "b", "c", "d"})
			tt.setup(ledger)

			seat, err := ledger.TryClaim(tt.room)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSeat, seat)
		})
	}
}

// TestLedger_TryClaim_FullRoomUnchanged 佔位失敗不得改變佔用數
func TestLedger_TryClaim_FullRoomUnchanged(t *testing.T) {
	ledger := internal.NewLedger([]string{"a"})

	_, err := ledger.TryClaim("a")
	require.NoError(t, err)
	_, err = ledger.TryClaim("a")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := ledger.TryClaim("a")
		require.ErrorIs(t, err, internal.ErrRoomFull)
	}

	count, _ := ledger.Occupancy("a")
	assert.Equal(t, 2, count)
}

// TestLedger_Release 測試釋放房間
func TestLedger_Release(t *testing.T) {
	ledger := internal.NewLedger([]string{"a", "b"})

	ledger.TryClaim("a")
	ledger.TryClaim("a")
	ledger.TryClaim("b")

	// 釋放後立即可供全新配對
	ledger.Release("a")
	count, _ := ledger.Occupancy("a")
	assert.Zero(t, count)

	seat, err := ledger.TryClaim("a")
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	// 單邊佔用的房間同樣直接歸零
	ledger.Release("b")
	count, _ = ledger.Occupancy("b")
	assert.Zero(t, count)

	// 釋放空房間與未知房間都是安全的 no-op
	ledger.Release("b")
	ledger.Release("z")
}

// TestLedger_Snapshot 快照必須依固定順序排列
func TestLedger_Snapshot(t *testing.T) {
	ledger := internal.NewLedger([]string{"a", "b", "c", "d"})

	ledger.TryClaim("b")
	ledger.TryClaim("d")
	ledger.TryClaim("d")

	assert.Equal(t, []int{0, 1, 0, 2}, ledger.Snapshot())
}

// TestLedger_ConcurrentClaims 併發佔位不得超賣
//
// 不變式：任何時刻佔用數落在 [0,2]，且恰好兩次佔位成功。
func TestLedger_ConcurrentClaims(t *testing.T) {
	const goroutines = 50

	ledger := internal.NewLedger([]string{"a"})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		seats []int
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if seat, err := ledger.TryClaim("a"); err == nil {
				mu.Lock()
				seats = append(seats, seat)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seats, 2, "恰好兩次佔位成功")
	assert.ElementsMatch(t, []int{1, 2}, seats)

	count, _ := ledger.Occupancy("a")
	assert.Equal(t, 2, count)
}

// TestLedger_ConcurrentClaimRelease 併發佔位與釋放交錯後佔用數仍在範圍內
func TestLedger_ConcurrentClaimRelease(t *testing.T) {
	rooms := []string{"a", "b", "c", "d"}
	ledger := internal.NewLedger(rooms)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			room := rooms[n%len(rooms)]
			for j := 0; j < 50; j++ {
				if _, err := ledger.TryClaim(room); err == nil && j%3 == 0 {
					ledger.Release(room)
				}
			}
		}(i)
	}
	wg.Wait()

	for _, room := range rooms {
		count, exists := ledger.Occupancy(room)
		require.True(t, exists)
		assert.GreaterOrEqual(t, count, 0, fmt.Sprintf("房間 %s", room))
		assert.LessOrEqual(t, count, 2, fmt.Sprintf("房間 %s", room))
	}
}
