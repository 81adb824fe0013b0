package internal

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrRoundMissing = errors.New("回合資料不存在")

// Round 一個回合的題目與可接受答案
type Round struct {
	Prompt  string   // 亂序後的題目字串
	Answers []string // 可接受的答案
}

// RoundProvider 回合資料提供者
//
// 內容如何產生、儲存與維護不在本服務的範圍內，
// 核心只依賴這個查詢介面。查詢失敗對該場對局是致命的：
// 寧可中止配對，也不能用未定義的內容開局。
type RoundProvider interface {
	Lookup(id int) (Round, error)
}

// FileProvider 以檔案為後端的回合資料提供者
//
// 資料格式：<dir>/<id>.txt，逗號分隔，
// 第一個值是亂序題目，其餘為可接受答案。
type FileProvider struct {
	dir string
}

// NewFileProvider 建立檔案回合提供者
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// Lookup 讀取指定回合的題目與答案
func (p *FileProvider) Lookup(id int) (Round, error) {
	path := filepath.Join(p.dir, strconv.Itoa(id)+".txt")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Round{}, fmt.Errorf("%w: %s", ErrRoundMissing, path)
		}
		return Round{}, fmt.Errorf("讀取回合資料失敗: %w", err)
	}

	values := strings.Split(strings.TrimSpace(string(data)), ",")
	if len(values) < 2 {
		return Round{}, fmt.Errorf("回合資料格式不合法: %s", path)
	}

	round := Round{
		Prompt:  strings.TrimSpace(values[0]),
		Answers: make([]string, 0, len(values)-1),
	}
	for _, v := range values[1:] {
		answer := strings.TrimSpace(v)
		if answer != "" {
			round.Answers = append(round.Answers, answer)
		}
	}

	if round.Prompt == "" || len(round.Answers) == 0 {
		return Round{}, fmt.Errorf("回合資料格式不合法: %s", path)
	}
	return round, nil
}

// RandRoundID 在 [min, max] 範圍內隨機挑選回合識別碼
func RandRoundID(min, max int) int {
	return min + rand.Intn(max-min+1)
}
