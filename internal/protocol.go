package internal

import (
	"strconv"
	"strings"
)

// 線路協議：每個文字訊框以單字母標籤開頭
//
//	server → client  a:NNNN     房間佔用快照（固定順序，每房一位數字）
//	client → server  <room>     選擇該房間（如 a / b / c / d）
//	client → server  r          請求刷新快照
//	server → client  s:<題目>    回合開始，附亂序題目
//	client → server  g:<詞>      提交一次猜測
//	server → client  p:<分數>    回覆發送者本人的最新比分
//	server → client  o:<分數>    對手的最新比分
//	server → client  f:u|o|d|x  終局：勝 / 負 / 平手 / 對手斷線
//
// 活性探測走 WebSocket 的 Ping/Pong 控制幀，不出現在此表。

const (
	tagStart    = "s:"
	tagGuess    = "g:"
	tagScore    = "p:"
	tagOpponent = "o:"
	tagFinish   = "f:"

	frameRefresh = "r"

	FinishWin  = "f:u" // 本方獲勝
	FinishLose = "f:o" // 對手獲勝
	FinishDraw = "f:d" // 平手
	FinishGone = "f:x" // 對手斷線
)

// SnapshotFrame 組裝房間佔用快照訊框
//
// 佔用數依帳本的固定順序逐一轉成數字字元，
// 房間數增加時訊框長度隨之增加，兩者由同一配置驅動。
func SnapshotFrame(counts []int) string {
	var b strings.Builder
	b.WriteString("a:")
	for _, count := range counts {
		b.WriteString(strconv.Itoa(count))
	}
	return b.String()
}

// StartFrame 組裝回合開始訊框
func StartFrame(prompt string) string {
	return tagStart + prompt
}

// ScoreFrame 組裝本人比分訊框
func ScoreFrame(score int) string {
	return tagScore + strconv.Itoa(score)
}

// OpponentScoreFrame 組裝對手比分訊框
func OpponentScoreFrame(score int) string {
	return tagOpponent + strconv.Itoa(score)
}

// ParseGuess 解析猜測訊框，回傳猜測的詞
func ParseGuess(frame string) (string, bool) {
	if !strings.HasPrefix(frame, tagGuess) {
		return "", false
	}
	word := frame[len(tagGuess):]
	if word == "" {
		return "", false
	}
	return word, true
}

// IsRefresh 是否為快照刷新請求
func IsRefresh(frame string) bool {
	return frame == frameRefresh
}

// IsFinish 是否為終局訊框（送出後連線階段即結束）
func IsFinish(frame string) bool {
	return strings.HasPrefix(frame, tagFinish)
}
