package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// The rate at which updates are sent to the client, so as not to overburden it.
	pubResolution  = time.Millisecond * 100
	pingResolution = time.Millisecond * 200
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// MessageHandler handles a message read from the peer. A non-nil reply is
// written back to the peer as json.
type MessageHandler func(ctx context.Context, msg []byte) (reply interface{})

// A client publishes idempotent updates to a web client via websocket and
// hands the messages it receives to a MessageHandler, so the peer can steer
// whatever produces the updates.
type client[T any] struct {
	updates   <-chan T
	onMessage MessageHandler
	ws        *websock
	rootCtx   context.Context
}

// NewClient upgrades the request to a websocket. Items in the updates chan
// must be idempotent, such that intervening updates can be discarded when
// they are received too quickly (> pub-rate), and only sending the latest
// update is sufficient to specify the new client state.
// A nil onMessage discards peer messages.
func NewClient[T any](
	updates <-chan T,
	onMessage MessageHandler,
	w http.ResponseWriter,
	r *http.Request,
) (*client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the peer.
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	if onMessage == nil {
		onMessage = func(context.Context, []byte) interface{} { return nil }
	}

	return &client[T]{
		updates:   updates,
		onMessage: onMessage,
		ws:        NewWebSocket(ws),
		rootCtx:   r.Context(),
	}, nil
}

// Sync publishes incoming updates and serves peer messages until the peer
// disconnects, the updates chan is closed, or an unexpected error occurs.
// Updates received faster than the publication rate are discarded.
// Sync returns nil upon client disconnect, and always closes the websocket.
func (cli *client[T]) Sync() error {
	ctx, cancel := context.WithCancel(cli.rootCtx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	// Any routine exiting tears down the others.
	run := func(fn func(context.Context) error) {
		group.Go(func() error {
			defer cancel()
			return fn(groupCtx)
		})
	}
	run(cli.readMessages)
	run(cli.pingPong)
	run(cli.publish)

	// The reader blocks on the socket, so closing it is what unblocks it.
	group.Go(func() error {
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})

	if err := group.Wait(); err != nil && !isClosure(err) {
		return err
	}
	return nil
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// Runs the ping-pong for the client liveness check.
// NOTE: This function requires that readMessages is running to ensure the pong handler is called.
func (cli *client[T]) pingPong(ctx context.Context) error {
	// Never closed: the handler may still fire after this routine returns.
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				err = fmt.Errorf("ping failed: %w", err)
			}
			return
		})
}

// readMessages passes messages from the peer to the handler.
// Errors returned by websocket Read methods are permanent, hence any error
// must trigger full teardown.
func (cli *client[T]) readMessages(ctx context.Context) error {
	for {
		var msg []byte
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, msg, readErr = ws.ReadMessage()
				return
			})
		// A read failing after teardown began is the socket being closed under it.
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		if reply := cli.onMessage(ctx, msg); reply != nil {
			if err = cli.writeJSON(ctx, reply); err != nil {
				return err
			}
		}
	}
}

func (cli *client[T]) publish(ctx context.Context) error {
	lastSync := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			// Graceful input channel closure
			if !ok {
				return nil
			}
			// Drop updates when receiving too quickly.
			if time.Since(lastSync) < pubResolution {
				break
			}

			lastSync = time.Now()
			if err := cli.writeJSON(ctx, update); err != nil {
				return err
			}
		}
	}
}

func (cli *client[T]) writeJSON(ctx context.Context, v interface{}) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (writeErr error) {
			if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
				return fmt.Errorf("failed to set deadline: %w", writeErr)
			}
			if writeErr = ws.WriteJSON(v); writeErr != nil {
				writeErr = fmt.Errorf("publish failed: %w", writeErr)
			}
			return
		})
}

func isClosure(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway ||
			closeErr.Code == websocket.CloseNoStatusReceived
	}
	return false
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline    = time.Second
	closeGracePeriod = 100 * time.Millisecond
)

// websock merely serializes writes to the websocket, whose requirements are
// that there may be only one concurrent reader and writer at a time. There
// is a single reader, which may block indefinitely until the socket closes.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func NewWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Returns the underlying websocket.
// This should only be used non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close message, if the writer is free, and closes the
// websocket, which unblocks a pending reader.
func (sock *websock) Close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = sock.ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-sock.writeSem
		time.Sleep(closeGracePeriod)
	case <-time.After(writeDeadline):
	}
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
