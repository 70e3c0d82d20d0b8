package rodbrowser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRendererDefaults(t *testing.T) {
	r, err := NewRenderer(Options{Endpoint: "ws://127.0.0.1:9222/devtools/browser/x", Token: "s3cret"}, nil)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	if r.opts.NavigationTimeout != 45*time.Second {
		t.Errorf("NavigationTimeout = %v, want 45s", r.opts.NavigationTimeout)
	}
	if want := "ws://127.0.0.1:9222/devtools/browser/x?token=s3cret"; r.opts.Endpoint != want {
		t.Errorf("Endpoint = %q, want %q", r.opts.Endpoint, want)
	}
}

func TestNewRendererRejectsRelativeEndpoint(t *testing.T) {
	if _, err := NewRenderer(Options{Endpoint: "chrome:9222"}, nil); err == nil {
		t.Fatal("NewRenderer() expected error for endpoint without host")
	}
}

func TestScrapeErrClassification(t *testing.T) {
	live := context.Background()
	if err := scrapeErr(live, "navigate", errors.New("net::ERR_NAME_NOT_RESOLVED")); !errors.Is(err, domain.ErrMediaNotFound) {
		t.Errorf("scrapeErr() = %v, want ErrMediaNotFound", err)
	}

	expired, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-expired.Done()
	if err := scrapeErr(expired, "navigate", errors.New("anything")); !errors.Is(err, domain.ErrScrapeTimeout) {
		t.Errorf("scrapeErr() = %v, want ErrScrapeTimeout", err)
	}
}

func TestSettleHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := settle(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("settle() = %v, want context.Canceled", err)
	}
	if err := settle(context.Background(), 0); err != nil {
		t.Errorf("settle(0) = %v, want nil", err)
	}
}

// silentListener accepts connections and never writes to them.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestRenderGivesUpOnSilentEndpoint(t *testing.T) {
	addr := silentListener(t)
	for _, endpoint := range []string{"ws://" + addr + "/devtools/browser/x", "http://" + addr} {
		t.Run(endpoint[:strings.Index(endpoint, ":")], func(t *testing.T) {
			r, err := NewRenderer(Options{Endpoint: endpoint, NavigationTimeout: 200 * time.Millisecond}, discardLogger())
			if err != nil {
				t.Fatalf("NewRenderer() error: %v", err)
			}

			done := make(chan error, 1)
			go func() {
				_, err := r.Render(context.Background(), "https://igram.world/get?id=1")
				done <- err
			}()

			select {
			case err := <-done:
				if !errors.Is(err, domain.ErrScrapeTimeout) {
					t.Errorf("Render() error = %v, want ErrScrapeTimeout", err)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("Render() still blocked long after the navigation timeout")
			}
		})
	}
}

func TestResolveControlURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"Browser":"Chrome/126","webSocketDebuggerUrl":"ws://0.0.0.0:9222/devtools/browser/abc"}`)
	}))
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")

	got, err := resolveControlURL(context.Background(), srv.URL+"?token=s3cret")
	if err != nil {
		t.Fatalf("resolveControlURL() error: %v", err)
	}
	if want := "ws://" + host + "/devtools/browser/abc?token=s3cret"; got != want {
		t.Errorf("resolveControlURL() = %q, want %q", got, want)
	}

	direct := "wss://chrome.example:3000/?token=s3cret"
	if got, err := resolveControlURL(context.Background(), direct); err != nil || got != direct {
		t.Errorf("resolveControlURL(%q) = %q, %v; want it unchanged", direct, got, err)
	}
	if _, err := resolveControlURL(context.Background(), "ftp://chrome.example"); err == nil {
		t.Error("resolveControlURL(ftp) expected error")
	}
}

func TestCloserRunsStepsOnce(t *testing.T) {
	var order []string
	c := closer(
		func() { order = append(order, "browser") },
		func() { order = append(order, "socket") },
	)
	c()
	c()
	c()
	if got := strings.Join(order, ","); got != "browser,socket" {
		t.Errorf("steps ran as %q, want %q", got, "browser,socket")
	}
}
