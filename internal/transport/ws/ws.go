// Package ws транспорт синхронизации поверх WebSocket: сервер слушает ws://<addr>/sync.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fsdevblog/festwallet/internal/session"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	Path = "/sync"

	defaultWriteTimeout = 10 * time.Second
	readHeaderTimeout   = 5 * time.Second
	maxMessageSize      = 64 << 20
)

var (
	ErrClosed         = errors.New("websocket connection closed")
	ErrListenerClosed = errors.New("websocket listener closed")
)

type Transport struct {
	l        *logrus.Entry
	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
}

func New(l *logrus.Logger) *Transport {
	return &Transport{
		l: l.WithFields(logrus.Fields{
			"component": "transport",
			"module":    "ws",
		}),
		dialer: &websocket.Dialer{HandshakeTimeout: readHeaderTimeout},
		upgrader: websocket.Upgrader{
			// узлы работают в локальной сети без браузеров, Origin не проверяется.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Listen поднимает собственный http.Server на address.
func (t *Transport) Listen(_ context.Context, address string) (session.Listener, error) {
	netLn, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("ws listen: %w", err)
	}

	ln := &listener{
		addr:   netLn.Addr().String(),
		accept: make(chan *conn),
		closed: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, func(w http.ResponseWriter, r *http.Request) {
		ws, upErr := t.upgrader.Upgrade(w, r, nil)
		if upErr != nil {
			t.l.WithError(upErr).WithField("remote", r.RemoteAddr).Warn("upgrade failed")
			return
		}
		c := newConn(ws, r.RemoteAddr)
		select {
		case ln.accept <- c:
		case <-ln.closed:
			_ = c.Close()
		case <-r.Context().Done():
			_ = c.Close()
		}
	})
	ln.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if serveErr := ln.srv.Serve(netLn); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			t.l.WithError(serveErr).Error("ws server stopped")
		}
	}()
	return ln, nil
}

// Dial принимает как host:port, так и полный ws:// адрес.
func (t *Transport) Dial(ctx context.Context, address string) (session.Conn, error) {
	url := address
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		url = "ws://" + strings.TrimSuffix(address, "/") + Path
	}
	ws, resp, err := t.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("ws dial %s: %w", url, err)
	}
	return newConn(ws, address), nil
}

type listener struct {
	addr      string
	srv       *http.Server
	accept    chan *conn
	closed    chan struct{}
	closeOnce sync.Once
}

func (ln *listener) Accept(ctx context.Context) (session.Conn, error) {
	select {
	case c := <-ln.accept:
		return c, nil
	case <-ln.closed:
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close останавливает сервер. Уже принятые соединения закрывает их владелец.
func (ln *listener) Close() error {
	var err error
	ln.closeOnce.Do(func() {
		close(ln.closed)
		err = ln.srv.Close()
	})
	return err
}

func (ln *listener) Addr() string {
	return ln.addr
}

type conn struct {
	ws       *websocket.Conn
	remote   string
	in       chan []byte
	readDone chan struct{}
	readErr  error
	closed   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, remote string) *conn {
	ws.SetReadLimit(maxMessageSize)
	c := &conn{
		ws:       ws,
		remote:   remote,
		in:       make(chan []byte),
		readDone: make(chan struct{}),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *conn) readLoop() {
	defer close(c.readDone)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		select {
		case c.in <- data:
		case <-c.closed:
			c.readErr = ErrClosed
			return
		}
	}
}

func (c *conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.readDone:
		return nil, fmt.Errorf("ws receive: %w", c.readErr)
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("ws send: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("ws send: %w", err)
	}
	return nil
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func (c *conn) RemoteAddr() string {
	return c.remote
}
