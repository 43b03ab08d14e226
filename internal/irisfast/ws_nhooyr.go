package irisfast

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// WebSocket consumes the gateway's inbound event stream. It reconnects with
// bounded backoff and keeps the connection alive with pings.
type WebSocket struct {
	wsURL string

	conn   *websocket.Conn
	state  WebSocketState
	stateM sync.RWMutex

	msgCbs   []MessageCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration) *WebSocket {
	return &WebSocket{
		wsURL:                wsURL,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

// SetHeaderProvider injects headers into the WS handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) {
	ws.headerProvider = h
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.stateM.Lock()
	if ws.state == WSStateConnected || ws.state == WSStateConnecting {
		ws.stateM.Unlock()
		return nil
	}
	ws.stateM.Unlock()

	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	ws.setState(WSStateConnecting)

	conn, err := ws.dial(ctx)
	if err != nil {
		ws.setState(WSStateFailed)
		ws.scheduleReconnect()
		return err
	}

	ws.startLoops(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	return conn, err
}

func (ws *WebSocket) startLoops(conn *websocket.Conn) {
	ws.conn = conn
	ws.setState(WSStateConnected)
	ws.wg.Add(2)
	go ws.listen()
	go ws.pingLoop()
}

func (ws *WebSocket) listen() {
	defer ws.wg.Done()
	for {
		select {
		case <-ws.stopCh:
			return
		default:
		}

		if ws.conn == nil {
			return
		}
		var msg Message
		if err := wsjson.Read(ws.rootCtx, ws.conn, &msg); err != nil {
			if ws.isStopping() {
				return
			}
			ws.setState(WSStateDisconnected)
			_ = ws.closeConn(websocket.StatusGoingAway, "reconnect")
			ws.scheduleReconnect()
			return
		}

		ws.cbM.RLock()
		callbacks := make([]MessageCallback, len(ws.msgCbs))
		copy(callbacks, ws.msgCbs)
		ws.cbM.RUnlock()
		for _, cb := range callbacks {
			if cb != nil {
				cb(&msg)
			}
		}
	}
}

func (ws *WebSocket) pingLoop() {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
			if ws.conn == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := ws.conn.Ping(ctx)
			cancel()
			if err != nil {
				failures++
				if failures >= 2 {
					if ws.isStopping() {
						return
					}
					ws.setState(WSStateDisconnected)
					_ = ws.closeConn(websocket.StatusGoingAway, "ping failure")
					ws.scheduleReconnect()
					failures = 0
				}
				continue
			}
			failures = 0
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 {
		return
	}
	ws.setState(WSStateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			delay := backoffDuration(attempt)
			if delay < ws.reconnectDelay {
				delay = ws.reconnectDelay
			}
			select {
			case <-ws.stopCh:
				return
			case <-time.After(delay):
			}

			conn, err := ws.dial(ws.rootCtx)
			if err != nil {
				continue
			}
			ws.startLoops(conn)
			return
		}
		ws.setState(WSStateFailed)
	}()
}

func (ws *WebSocket) OnMessage(cb MessageCallback) {
	ws.cbM.Lock()
	ws.msgCbs = append(ws.msgCbs, cb)
	ws.cbM.Unlock()
}

func (ws *WebSocket) OnStateChange(cb StateCallback) {
	ws.cbM.Lock()
	ws.stateCbs = append(ws.stateCbs, cb)
	ws.cbM.Unlock()
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]StateCallback, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(state)
		}
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	_ = ws.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if ws.rootCancel != nil {
			ws.rootCancel()
		}
		return nil
	}
}

func (ws *WebSocket) closeConn(code websocket.StatusCode, reason string) error {
	if ws.conn == nil {
		return nil
	}
	defer func() { ws.conn = nil }()
	return ws.conn.Close(code, reason)
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
