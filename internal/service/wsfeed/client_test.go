package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalFlow/pkg/logger"

	"github.com/gorilla/websocket"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	return log
}

var upgrader = websocket.Upgrader{}

// feedServer upgrades, consumes the subscribe frame, sends the given frames,
// then reads until the peer goes away.
func feedServer(t *testing.T, subscribed chan<- struct{}, frames ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		select {
		case subscribed <- struct{}{}:
		default:
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWaitReturnsAfterContextCancel(t *testing.T) {
	subscribed := make(chan struct{}, 1)
	srv := feedServer(t, subscribed)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(wsURL(srv), []string{"ta_rsi"}, testLogger(t))
	c.Start(ctx)

	select {
	case <-subscribed:
	case <-time.After(2 * time.Second):
		t.Fatalf("feed never subscribed")
	}

	// The connection is quiet, so the read loop only unblocks if the cancel
	// reaches it.
	cancel()

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Wait() still blocked after context cancel")
	}
}

func TestFeedDeliversSnapshots(t *testing.T) {
	frame := `{"table":"ta_rsi","symbol":"BTCUSDT","timeframe":"1h","ts":1756700000000,"price":50000,"num":{"rsi14":28.5}}`
	subscribed := make(chan struct{}, 1)
	srv := feedServer(t, subscribed, frame)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(wsURL(srv), []string{"ta_rsi"}, testLogger(t))
	c.Start(ctx)

	select {
	case snap := <-c.Snapshots():
		if snap.Table != "ta_rsi" || snap.Symbol != "BTCUSDT" {
			t.Fatalf("unexpected snapshot %s/%s", snap.Table, snap.Symbol)
		}
		if got := snap.Num("rsi14", 0); got != 28.5 {
			t.Fatalf("rsi14 = %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot received")
	}

	cancel()
	c.Wait()
}
