package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"bigtwo/internal/logging"

	"github.com/heroiclabs/nakama-common/runtime"
	"nhooyr.io/websocket"
)

// wsListener adapts websocket upgrades to net.Listener so the host accept
// loop serves websocket clients exactly like raw TCP ones. Each websocket
// message carries one or more protocol lines.
type wsListener struct {
	ln     net.Listener
	srv    *http.Server
	conns  chan net.Conn
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	logger runtime.Logger
}

// ListenWebSocket listens on addr and upgrades requests to path.
func ListenWebSocket(addr, path string, logger runtime.Logger) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return serveWebSocket(ln, path, logger), nil
}

func serveWebSocket(ln net.Listener, path string, logger runtime.Logger) *wsListener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &wsListener{
		ln:     ln,
		conns:  make(chan net.Conn),
		ctx:    ctx,
		cancel: cancel,
		logger: logging.OrNop(logger),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.upgrade)
	l.srv = &http.Server{Handler: mux}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("Transport: websocket server stopped: %v", err)
		}
		_ = l.Close()
	}()
	return l
}

func (l *wsListener) upgrade(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		l.logger.Warn("Transport: websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	conn := websocket.NetConn(l.ctx, c, websocket.MessageText)
	select {
	case l.conns <- conn:
	case <-l.ctx.Done():
		_ = c.Close(websocket.StatusGoingAway, "shutting down")
	}
}

func (l *wsListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	}
}

func (l *wsListener) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		err = l.srv.Close()
	})
	return err
}

func (l *wsListener) Addr() net.Addr { return l.ln.Addr() }

// DialWebSocket returns a DialFunc for a websocket host. addr is host:port
// and path the upgrade route.
func DialWebSocket(path string) DialFunc {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		url := fmt.Sprintf("ws://%s%s", addr, path)
		c, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		// The connection outlives the dial context.
		return websocket.NetConn(context.Background(), c, websocket.MessageText), nil
	}
}
