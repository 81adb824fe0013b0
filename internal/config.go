package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支援 "60s"、"500ms" 形式的 yaml 時長欄位
//
// yaml.v3 不認得 time.Duration 的字串寫法，這個包裝型別
// 讓配置檔可以用人類可讀的時長表示。
type Duration time.Duration

// UnmarshalYAML 以 time.ParseDuration 解析時長字串
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("無法解析時長 %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 轉回標準庫型別
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config 服務配置
//
// 系統設計考量：
//
//  1. 房間集合是配置而非硬編碼：
//     房間識別碼與快照訊框（a:NNNN，每房一位數字）必須同步成長，
//     把房間列表放進配置，兩者自然由同一來源驅動。
//
//  2. 時間策略集中管理：
//     對局時長、心跳間隔、配對輪詢等多個互相競爭的超時，
//     分散在程式碼裡極易失衡（例如心跳閾值短於 ping 間隔）。
//     集中在配置並於 Validate 檢查相對關係。
//
//  3. 預設值即參考部署：
//     沒有配置檔也能直接啟動（開發體驗優先），
//     配置檔只覆寫需要的欄位。
type Config struct {
	Server struct {
		Addr         string   `yaml:"addr"`
		ReadTimeout  Duration `yaml:"read_timeout"`
		WriteTimeout Duration `yaml:"write_timeout"`
		IdleTimeout  Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Game struct {
		Rooms            []string `yaml:"rooms"`              // 固定房間集合（快照訊框依此順序）
		OutboxSize       int      `yaml:"outbox_size"`        // 每個連線階段的收件通道容量
		MatchDuration    Duration `yaml:"match_duration"`     // 對局時長
		StartGrace       Duration `yaml:"start_grace"`        // 開局緩衝（客戶端準備時間）
		PingInterval     Duration `yaml:"ping_interval"`      // 心跳探測間隔
		LivenessWindow   Duration `yaml:"liveness_window"`    // 未收到 Pong 視為斷線的閾值
		PairPollInterval Duration `yaml:"pair_poll_interval"` // 等待對手時的輪詢間隔
		PairWait         Duration `yaml:"pair_wait"`          // 等待對手的上限
		MaxRefreshes     int      `yaml:"max_refreshes"`      // 選房階段允許的快照刷新次數
	} `yaml:"game"`

	Words struct {
		Dir      string `yaml:"dir"`       // 回合資料目錄
		MinRound int    `yaml:"min_round"` // 回合識別碼下限（含）
		MaxRound int    `yaml:"max_round"` // 回合識別碼上限（含）
	} `yaml:"words"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig 返回參考部署的預設配置
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = Duration(15 * time.Second)
	cfg.Server.WriteTimeout = Duration(15 * time.Second)
	cfg.Server.IdleTimeout = Duration(60 * time.Second)

	cfg.Game.Rooms = []string{"a", "b", "c", "d"}
	cfg.Game.OutboxSize = 10
	cfg.Game.MatchDuration = Duration(60 * time.Second)
	cfg.Game.StartGrace = Duration(6 * time.Second)
	cfg.Game.PingInterval = Duration(10 * time.Second)
	cfg.Game.LivenessWindow = Duration(20 * time.Second)
	cfg.Game.PairPollInterval = Duration(500 * time.Millisecond)
	cfg.Game.PairWait = Duration(70 * time.Second)
	cfg.Game.MaxRefreshes = 6

	cfg.Words.Dir = "anagrams"
	cfg.Words.MinRound = 1
	cfg.Words.MaxRound = 49

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

// LoadConfig 載入配置檔並與預設值合併
//
// 配置檔不存在不視為錯誤（直接使用預設值），
// 存在但無法解析則回傳錯誤。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, cfg.Validate()
			}
			return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置檔失敗: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 檢查配置的合法性與時間策略的相對關係
func (c *Config) Validate() error {
	if len(c.Game.Rooms) == 0 {
		return fmt.Errorf("至少需要一個房間")
	}
	seen := make(map[string]struct{}, len(c.Game.Rooms))
	for _, room := range c.Game.Rooms {
		if room == "" {
			return fmt.Errorf("房間識別碼不能為空")
		}
		// "r" 在線路協議中保留給快照刷新請求
		if room == frameRefresh {
			return fmt.Errorf("房間識別碼 %q 與刷新指令衝突", room)
		}
		if _, dup := seen[room]; dup {
			return fmt.Errorf("重複的房間識別碼: %s", room)
		}
		seen[room] = struct{}{}
	}

	if c.Game.OutboxSize <= 0 {
		return fmt.Errorf("outbox_size 必須大於 0")
	}
	if c.Game.MatchDuration <= 0 || c.Game.StartGrace < 0 {
		return fmt.Errorf("對局時長配置不合法")
	}
	if c.Game.PingInterval <= 0 || c.Game.LivenessWindow <= c.Game.PingInterval {
		return fmt.Errorf("liveness_window 必須大於 ping_interval")
	}
	if c.Game.PairPollInterval <= 0 || c.Game.PairWait <= c.Game.PairPollInterval {
		return fmt.Errorf("pair_wait 必須大於 pair_poll_interval")
	}
	if c.Game.MaxRefreshes <= 0 {
		return fmt.Errorf("max_refreshes 必須大於 0")
	}
	if c.Words.MinRound <= 0 || c.Words.MaxRound < c.Words.MinRound {
		return fmt.Errorf("回合識別碼範圍不合法")
	}
	return nil
}
