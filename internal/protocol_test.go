package internal_test

import (
	"testing"

	"github.com/koopa0/system-design/14-scramble-duel/internal"
	"github.com/stretchr/testify/assert"
)

// TestSnapshotFrame 快照訊框依固定順序每房一位數字
func TestSnapshotFrame(t *testing.T) {
	tests := []struct {
		name     string
		counts   []int
		expected string
	}{
		{"all empty", []int{0, 0, 0, 0}, "a:0000"},
		{"mixed occupancy", []int{0, 1, 0, 2}, "a:0102"},
		{"all full", []int{2, 2, 2, 2}, "a:2222"},
		{"more rooms grow the frame", []int{1, 0, 2, 0, 1, 0}, "a:102010"},
		{"no rooms", []int{}, "a:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, internal.SnapshotFrame(tt.counts))
		})
	}
}

// TestFrames 測試各訊框組裝
func TestFrames(t *testing.T) {
	assert.Equal(t, "s:tac", internal.StartFrame("tac"))
	assert.Equal(t, "p:0", internal.ScoreFrame(0))
	assert.Equal(t, "p:12", internal.ScoreFrame(12))
	assert.Equal(t, "o:7", internal.OpponentScoreFrame(7))
}

// TestParseGuess 測試猜測訊框解析
func TestParseGuess(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		expected string
		ok       bool
	}{
		{"valid guess", "g:cat", "cat", true},
		{"guess with colon in word", "g:a:b", "a:b", true},
		{"empty guess", "g:", "", false},
		{"wrong tag", "p:cat", "", false},
		{"bare word", "cat", "", false},
		{"empty frame", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, ok := internal.ParseGuess(tt.frame)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, word)
		})
	}
}

// TestIsFinish 終局訊框辨識
func TestIsFinish(t *testing.T) {
	assert.True(t, internal.IsFinish(internal.FinishWin))
	assert.True(t, internal.IsFinish(internal.FinishLose))
	assert.True(t, internal.IsFinish(internal.FinishDraw))
	assert.True(t, internal.IsFinish(internal.FinishGone))
	assert.False(t, internal.IsFinish("o:3"))
	assert.False(t, internal.IsFinish("s:tac"))
}

// TestIsRefresh 刷新請求辨識
func TestIsRefresh(t *testing.T) {
	assert.True(t, internal.IsRefresh("r"))
	assert.False(t, internal.IsRefresh("rr"))
	assert.False(t, internal.IsRefresh("a"))
}
