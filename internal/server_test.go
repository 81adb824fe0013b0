package internal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-scramble-duel/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServer_Health 健康檢查端點
func TestServer_Health(t *testing.T) {
	srv := internal.NewServer(fastConfig(), stubProvider{}, testLogger())
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()
	defer srv.Stop()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

// TestServer_Stats 統計端點反映佔用狀態
func TestServer_Stats(t *testing.T) {
	srv := internal.NewServer(fastConfig(), stubProvider{}, testLogger())
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()
	defer srv.Stop()

	srv.Ledger().TryClaim("a")

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Connections int            `json:"connections"`
		Occupancy   map[string]int `json:"occupancy"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Zero(t, body.Connections)
	assert.Equal(t, 1, body.Occupancy["a"])
	assert.Zero(t, body.Occupancy["b"])
}

// TestServer_StopClosesSessions Stop 關閉現存連線並等待清理
func TestServer_StopClosesSessions(t *testing.T) {
	provider := stubProvider{round: internal.Round{Prompt: "P", Answers: []string{"cat"}}}
	cfg := fastConfig()
	cfg.Game.PairWait = internal.Duration(5 * time.Second)

	srv, url := newGameServer(t, cfg, provider)

	ws := dialGame(t, url)
	readFrame(t, ws, time.Second)
	sendFrame(t, ws, "a")
	waitOccupancy(t, srv, "a", 1)

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop 未能在期限內結束")
	}

	// 連線階段的清理路徑已執行
	count, _ := srv.Ledger().Occupancy("a")
	assert.Zero(t, count)
}
