package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"rlsim/grid_world"
	"rlsim/reinforcement"
	"rlsim/server/cell_views"
	"rlsim/server/fastview"
	"rlsim/simulation"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Maximum request body size.
	maxBodySize = 1 << 16
	// Time allowed for in-flight requests when shutting down.
	shutdownGracePeriod = 5 * time.Second
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrBadRequest     = errors.New("bad request")
	ErrUnknownOp      = errors.New("unknown op")
)

// session is one engine ticked by its own runner goroutine.
type session struct {
	id     string
	runner *simulation.Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// Server exposes any number of independent demo sessions over http. Each
// session is controlled by REST calls or by control messages on its
// websocket, over which its state is streamed.
type Server struct {
	addr   string
	frame  time.Duration
	ctx    context.Context
	router *mux.Router

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer returns a server whose sessions live until ctx is done.
// Sessions tick once per frame.
func NewServer(
	ctx context.Context,
	addr string,
	frame time.Duration,
) *Server {
	server := &Server{
		addr:     addr,
		frame:    frame,
		ctx:      ctx,
		sessions: map[string]*session{},
	}
	server.router = server.routes()
	return server
}

func (server *Server) routes() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/demos", server.listDemos).Methods(http.MethodGet)
	api.HandleFunc("/sessions", server.listSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions", server.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", server.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", server.deleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/initialize", server.initializeSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/epsilon", server.setEpsilon).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/ws", server.serveWebsocket).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/{op:reset|pause|resume}", server.command).Methods(http.MethodPost)
	return router
}

// Handler returns the server's routes, e.g. for testing.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until the server's context is done, then shuts down.
func (server *Server) Serve() error {
	srv := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
	}

	group, groupCtx := errgroup.WithContext(server.ctx)
	group.Go(func() error {
		log.Printf("server: listening on %s", server.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	err := group.Wait()
	server.stopAll()
	return err
}

// Start builds an engine from cfg and starts ticking it.
func (server *Server) Start(cfg simulation.Config) (string, simulation.EngineState, error) {
	sess, err := server.start(cfg)
	if err != nil {
		return "", simulation.EngineState{}, err
	}
	return sess.id, sess.runner.Snapshot(), nil
}

func (server *Server) start(cfg simulation.Config) (*session, error) {
	engine, err := simulation.New(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(server.ctx)
	sess := &session{
		id:     uuid.New().String(),
		runner: simulation.NewRunner(engine, server.frame),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(sess.done)
		if err := sess.runner.Run(ctx); err != nil {
			log.Printf("session %s: %v", sess.id, err)
		}
	}()

	server.mu.Lock()
	server.sessions[sess.id] = sess
	server.mu.Unlock()

	log.Printf("session %s: started %s/%s", sess.id, cfg.Kind, cfg.Algorithm)
	return sess, nil
}

// Stop halts a session and forgets it.
func (server *Server) Stop(id string) error {
	server.mu.Lock()
	sess, ok := server.sessions[id]
	delete(server.sessions, id)
	server.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownSession)
	}
	sess.cancel()
	<-sess.done
	log.Printf("session %s: stopped", id)
	return nil
}

func (server *Server) stopAll() {
	server.mu.Lock()
	ids := make([]string, 0, len(server.sessions))
	for id := range server.sessions {
		ids = append(ids, id)
	}
	server.mu.Unlock()

	for _, id := range ids {
		_ = server.Stop(id)
	}
}

func (server *Server) lookup(r *http.Request) (*session, error) {
	id := mux.Vars(r)["id"]

	server.mu.Lock()
	defer server.mu.Unlock()
	sess, ok := server.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownSession)
	}
	return sess, nil
}

// sessionView is the json reply for a session.
type sessionView struct {
	ID     string            `json:"id"`
	Config simulation.Config `json:"config"`
	State  cell_views.Board  `json:"state"`
}

func viewOf(sess *session, state simulation.EngineState) sessionView {
	return sessionView{
		ID:     sess.id,
		Config: sess.runner.Config(),
		State:  cell_views.Convert(state),
	}
}

type demoView struct {
	Kind     simulation.Kind   `json:"kind"`
	Defaults simulation.Config `json:"defaults"`
}

func (server *Server) listDemos(w http.ResponseWriter, r *http.Request) {
	demos := make([]demoView, 0, len(simulation.Kinds))
	for _, kind := range simulation.Kinds {
		cfg, _ := simulation.DefaultConfig(kind)
		demos = append(demos, demoView{Kind: kind, Defaults: cfg})
	}
	writeJSON(w, http.StatusOK, demos)
}

func (server *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	server.mu.Lock()
	sessions := make([]*session, 0, len(server.sessions))
	for _, sess := range server.sessions {
		sessions = append(sessions, sess)
	}
	server.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, viewOf(sess, sess.runner.Snapshot()))
	}
	writeJSON(w, http.StatusOK, views)
}

func (server *Server) createSession(w http.ResponseWriter, r *http.Request) {
	cfg, err := readConfig(r, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, err := server.start(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess, sess.runner.Snapshot()))
}

func (server *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := server.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess, sess.runner.Snapshot()))
}

func (server *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := server.Stop(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) initializeSession(w http.ResponseWriter, r *http.Request) {
	sess, err := server.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	current := sess.runner.Config()
	cfg, err := readConfig(r, &current)
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := sess.runner.Initialize(r.Context(), cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess, state))
}

// command runs one of the argument-free runner commands.
func (server *Server) command(w http.ResponseWriter, r *http.Request) {
	sess, err := server.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := runCommand(r.Context(), sess.runner, mux.Vars(r)["op"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess, state))
}

func runCommand(ctx context.Context, runner *simulation.Runner, op string) (simulation.EngineState, error) {
	switch op {
	case "reset":
		return runner.Reset(ctx)
	case "pause":
		return runner.Pause(ctx)
	case "resume":
		return runner.Resume(ctx)
	}
	return simulation.EngineState{}, fmt.Errorf("%q: %w", op, ErrUnknownOp)
}

type epsilonRequest struct {
	Epsilon *float64 `json:"epsilon"`
}

func (server *Server) setEpsilon(w http.ResponseWriter, r *http.Request) {
	sess, err := server.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req := epsilonRequest{}
	if err = decode(r.Body, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Epsilon == nil {
		writeError(w, fmt.Errorf("missing epsilon: %w", ErrBadRequest))
		return
	}
	if err = sess.runner.SetEpsilon(*req.Epsilon); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// controlMessage is a command sent by a websocket peer.
type controlMessage struct {
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

type controlReply struct {
	Op    string `json:"op"`
	Error string `json:"error,omitempty"`
}

// serveWebsocket streams the session's boards to the peer and applies the
// control messages it sends.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	sess, err := server.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	boards := channerics.Convert(ctx.Done(), sess.runner.Subscribe(ctx), cell_views.Convert)

	onMessage := func(ctx context.Context, msg []byte) interface{} {
		ctrl := controlMessage{}
		if err := json.Unmarshal(msg, &ctrl); err != nil {
			return controlReply{Error: err.Error()}
		}

		var err error
		reply := controlReply{Op: ctrl.Op}
		if ctrl.Op == "epsilon" {
			err = sess.runner.SetEpsilon(ctrl.Value)
		} else {
			_, err = runCommand(ctx, sess.runner, ctrl.Op)
		}
		if err != nil {
			reply.Error = err.Error()
		}
		return reply
	}

	cli, err := fastview.NewClient(boards, onMessage, w, r)
	if err != nil {
		log.Printf("session %s: %v", sess.id, err)
		return
	}
	if err = cli.Sync(); err != nil {
		log.Printf("session %s: websocket: %v", sess.id, err)
		return
	}
	log.Printf("session %s: websocket closed", sess.id)
}

// readConfig decodes a Config from the request body onto base, or onto the
// defaults of the body's kind when base is nil or of another kind.
func readConfig(r *http.Request, base *simulation.Config) (cfg simulation.Config, err error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return cfg, fmt.Errorf("read body: %w", err)
	}

	head := struct {
		Kind simulation.Kind `json:"kind"`
	}{}
	if err = json.Unmarshal(body, &head); err != nil {
		return cfg, fmt.Errorf("%v: %w", err, ErrBadRequest)
	}

	if base != nil && (head.Kind == "" || head.Kind == base.Kind) {
		cfg = *base
	} else if cfg, err = simulation.DefaultConfig(head.Kind); err != nil {
		return
	}

	if err = json.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("%v: %w", err, ErrBadRequest)
	}
	return cfg, cfg.Validate()
}

func decode(body io.Reader, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%v: %w", err, ErrBadRequest)
	}
	return nil
}

// statusOf maps domain errors onto http statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSession),
		errors.Is(err, simulation.ErrRunnerStopped):
		return http.StatusNotFound
	case errors.Is(err, simulation.ErrEpsilonFixed):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrUnknownOp),
		errors.Is(err, simulation.ErrUnknownKind),
		errors.Is(err, simulation.ErrAlgorithm),
		errors.Is(err, simulation.ErrHyperParam),
		errors.Is(err, reinforcement.ErrEpsilonRange),
		errors.Is(err, grid_world.ErrUnknownRewardMode):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("server: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode: %v", err)
	}
}
