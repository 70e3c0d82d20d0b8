package rodbrowser

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/ysmood/gson"
)

// resolveControlURL turns a DevTools endpoint into a websocket URL. ws and wss endpoints are
// used as given; http ones are looked up through /json/version under ctx.
func resolveControlURL(ctx context.Context, endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse devtools endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported devtools scheme %q", u.Scheme)
	}

	lookup := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/json/version", RawQuery: u.RawQuery}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("devtools lookup: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	raw := gson.New(body).Get("webSocketDebuggerUrl").Str()
	if raw == "" {
		return "", fmt.Errorf("devtools lookup: no webSocketDebuggerUrl")
	}
	ws, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse webSocketDebuggerUrl: %w", err)
	}
	// The browser reports its own bind address; reach it the way the endpoint did.
	ws.Host = u.Host
	if u.Scheme == "https" {
		ws.Scheme = "wss"
	} else {
		ws.Scheme = "ws"
	}
	if ws.RawQuery == "" {
		ws.RawQuery = u.RawQuery
	}
	return ws.String(), nil
}

// boundDialer dials the DevTools socket and keeps the conn deadline tied to ctx until
// release is called. The websocket handshake reads the raw conn and never looks at ctx.
type boundDialer struct {
	tls bool

	mu   sync.Mutex
	conn net.Conn
	stop func() bool
}

func (d *boundDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var (
		conn net.Conn
		err  error
	)
	if d.tls {
		conn, err = (&tls.Dialer{}).DialContext(ctx, network, address)
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, network, address)
	}
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.conn = conn
	d.stop = context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	d.mu.Unlock()
	return conn, nil
}

// release detaches the conn from ctx. It reports false when ctx already fired.
func (d *boundDialer) release() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return false
	}
	if !d.stop() {
		return false
	}
	return d.conn.SetDeadline(time.Time{}) == nil
}

func (d *boundDialer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

// connect opens a CDP session on wsURL. Every step, the handshake included, gives up when
// ctx does. The returned browser is not bound to ctx; hang-up closes the socket.
func connect(ctx context.Context, wsURL string) (*rod.Browser, func(), error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse control url: %w", err)
	}
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "wss" {
			port = "443"
		}
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}

	d := &boundDialer{tls: u.Scheme == "wss"}
	ws := &cdp.WebSocket{Dialer: d}
	if err := ws.Connect(ctx, u.String(), nil); err != nil {
		d.close()
		return nil, nil, fmt.Errorf("devtools handshake: %w", err)
	}
	if !d.release() {
		d.close()
		cause := ctx.Err()
		if cause == nil {
			cause = errors.New("conn deadline not cleared")
		}
		return nil, nil, fmt.Errorf("devtools handshake: %w", cause)
	}

	client := cdp.New().Start(ws)
	b := rod.New().Client(client).Context(ctx)
	if err := b.Connect(); err != nil {
		d.close()
		return nil, nil, fmt.Errorf("attach to browser: %w", err)
	}
	return b.Context(context.Background()), d.close, nil
}
