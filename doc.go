// Package scrambleduel 提供了一個即時 1v1 拼字對戰的權威後端。
//
// 實現了一個透過持久 WebSocket 連線進行配對與同步對戰的遊戲服務器，
// 包含以下核心功能：
//
// 配對與房間管理
//
// 固定數量的對戰房間（預設 a/b/c/d 四間，每間恰好兩個座位）：
//   - 連線即收到房間佔用快照，可反覆刷新後再選房
//   - 佔位、入座順序由鎖序唯一決定
//   - 等待對手與選房階段皆有逾時上限，杜絕殭屍連線
//   - 對局結束或任一方離線後，房間立即可供全新配對
//
// # 即時對戰同步
//
// 兩名玩家在同一亂序題目上限時搶答：
//   - 答對依詞長計分，比分即時回送雙方
//   - 同一個詞任一方答對後，任何人不得再次得分
//   - 固定對局時長由脫離連線生命週期的計時器結算
//   - 勝負平手由比分嚴格比較決定
//
// 併發安全設計
//
// 採用粗粒度鎖與訊息傳遞的組合：
//   - 一把鎖守護房間帳本、一把鎖守護對局註冊表
//   - 臨界區只做記憶體操作，不跨越任何 I/O
//   - 座位間通訊只透過收件通道，錯誤不跨連線傳播
//   - 心跳（Ping/Pong）檢測靜默斷線
//
// 使用範例
//
// 啟動服務器：
//
//	cfg, _ := internal.LoadConfig("config.yaml")
//	provider := internal.NewFileProvider(cfg.Words.Dir)
//	server := internal.NewServer(cfg, provider, logger)
//
//	http.ListenAndServe(cfg.Server.Addr, server.Routes())
//
// 客戶端連接：
//
//	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:8080/ws", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ws.Close()
//
// 線路協議
//
// 單字母標籤的文字訊框：
//   - a:NNNN：房間佔用快照（每房一位數字）
//   - s:<題目>：回合開始
//   - g:<詞> / p:<分> / o:<分>：猜測與比分
//   - f:u / f:o / f:d / f:x：終局（勝／負／平／對手斷線）
//
// 配置選項
//
// 支援多種運行時配置（config.yaml 與命令行旗標）：
//   - -addr：服務監聽位址（預設 :8080）
//   - -log-level：日誌級別（debug/info/warn/error）
//   - 房間列表、對局時長、心跳與配對逾時均可經配置調整
//
// 測試覆蓋
//
// 套件包含完整的測試套件：
//   - 單元測試覆蓋帳本、註冊表、協議與回合載入
//   - 端到端測試驗證完整對局流程
//   - 壓力測試確保配對在高併發下不破壞佔用不變式
package scrambleduel
