// Package memory транспорт синхронизации внутри одного процесса. Узлы адресуются именами
// в общей Network.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fsdevblog/festwallet/internal/session"
)

const connBuffer = 256

var (
	ErrAddressInUse  = errors.New("address already in use")
	ErrNoListener    = errors.New("no listener at address")
	ErrClosed        = errors.New("connection closed")
	ErrListenerClose = errors.New("listener closed")
)

// Network набор именованных точек подключения. Нулевое значение не готово к работе, используйте NewNetwork.
type Network struct {
	mu        sync.Mutex
	listeners map[string]*listener
	dials     int
}

func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*listener)}
}

func (n *Network) Listen(_ context.Context, address string) (session.Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, taken := n.listeners[address]; taken {
		return nil, fmt.Errorf("listen %q: %w", address, ErrAddressInUse)
	}
	ln := &listener{
		network: n,
		addr:    address,
		accept:  make(chan *conn),
		closed:  make(chan struct{}),
	}
	n.listeners[address] = ln
	return ln, nil
}

func (n *Network) Dial(ctx context.Context, address string) (session.Conn, error) {
	n.mu.Lock()
	ln, ok := n.listeners[address]
	n.dials++
	clientAddr := fmt.Sprintf("%s#%d", address, n.dials)
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dial %q: %w", address, ErrNoListener)
	}

	client, server := pipe(clientAddr, address)
	select {
	case ln.accept <- server:
		return client, nil
	case <-ln.closed:
		return nil, fmt.Errorf("dial %q: %w", address, ErrNoListener)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *Network) remove(ln *listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners[ln.addr] == ln {
		delete(n.listeners, ln.addr)
	}
}

type listener struct {
	network   *Network
	addr      string
	accept    chan *conn
	closed    chan struct{}
	closeOnce sync.Once
}

func (ln *listener) Accept(ctx context.Context) (session.Conn, error) {
	select {
	case c := <-ln.accept:
		return c, nil
	case <-ln.closed:
		return nil, ErrListenerClose
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ln *listener) Close() error {
	ln.closeOnce.Do(func() {
		close(ln.closed)
		ln.network.remove(ln)
	})
	return nil
}

func (ln *listener) Addr() string {
	return ln.addr
}

type conn struct {
	remote    string
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	peer      *conn
}

func pipe(clientAddr, serverAddr string) (*conn, *conn) {
	client := &conn{remote: serverAddr, in: make(chan []byte, connBuffer), closed: make(chan struct{})}
	server := &conn{remote: clientAddr, in: make(chan []byte, connBuffer), closed: make(chan struct{})}
	client.peer, server.peer = server, client
	return client, server
}

func (c *conn) Send(ctx context.Context, data []byte) error {
	msg := make([]byte, len(data))
	copy(msg, data)
	select {
	case <-c.closed:
		return ErrClosed
	case <-c.peer.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case c.peer.in <- msg:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-c.peer.closed:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive после закрытия другой стороны сначала отдает уже доставленные сообщения, затем io.EOF.
func (c *conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-c.peer.closed:
		select {
		case msg := <-c.in:
			return msg, nil
		default:
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *conn) RemoteAddr() string {
	return c.remote
}
