package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/miretskiy/queuesim/simulator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client message types
type ClientMessage struct {
	Type   string               `json:"type"` // start, pause, reset, config_update
	Config *simulator.SimConfig `json:"config,omitempty"`
}

// Server message types
type ServerMessage struct {
	Type     string                 `json:"type"` // status, trace, progress, report, error
	RunID    string                 `json:"runId,omitempty"`
	Running  *bool                  `json:"running,omitempty"`
	Config   *simulator.SimConfig   `json:"config,omitempty"`
	Progress *simulator.Progress    `json:"progress,omitempty"`
	Events   []simulator.TraceEvent `json:"events,omitempty"`
	Dropped  int                    `json:"dropped,omitempty"` // trace events not sent this tick
	Summary  *simulator.Summary     `json:"summary,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

type serverOptions struct {
	tick      time.Duration // wall-clock time between UI updates
	timeStep  float64       // simulated time per update
	maxEvents int           // trace events per update (0 = all)
	defaults  simulator.SimConfig
}

type server struct {
	opts     serverOptions
	upgrader websocket.Upgrader
	metrics  *promMetrics
	gatherer prometheus.Gatherer
	log      *logrus.Entry
	quit     chan struct{}
	quitOnce sync.Once
}

func newServer(opts serverOptions, log *logrus.Entry) *server {
	reg := prometheus.NewRegistry()
	return &server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for development
				return true
			},
		},
		metrics:  newPromMetrics(reg),
		gatherer: reg,
		log:      log,
		quit:     make(chan struct{}),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/quitquitquit", s.quitHandler)
	return mux
}

// safeConn wraps a WebSocket connection with a mutex to prevent concurrent writes
type safeConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (sc *safeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.Conn.WriteJSON(v)
}

func statusMessage(state *simState) ServerMessage {
	running := state.isRunning()
	cfg := state.getConfig()
	return ServerMessage{
		Type:    "status",
		RunID:   state.runID(),
		Running: &running,
		Config:  &cfg,
	}
}

// uiUpdateLoop periodically advances the simulation and streams the trace,
// progress and, once the horizon is reached, the report to the client.
// This runs in its own goroutine and controls UI pacing.
func (s *server) uiUpdateLoop(conn *safeConn, state *simState, log *logrus.Entry) {
	ticker := time.NewTicker(s.opts.tick)
	defer ticker.Stop()

	for {
		select {
		case <-state.stopCh:
			log.Debug("UI update loop stopping")
			return

		case <-ticker.C:
			if !state.isRunning() {
				continue
			}
			u := state.step(s.opts.timeStep, s.opts.maxEvents)
			s.metrics.observeProgress(u.Progress)
			runID := u.Progress.RunID

			if len(u.Events) > 0 || u.Dropped > 0 {
				msg := ServerMessage{Type: "trace", RunID: runID, Events: u.Events, Dropped: u.Dropped}
				if err := conn.WriteJSON(msg); err != nil {
					log.WithError(err).Warn("error sending trace")
					return
				}
			}

			progress := u.Progress
			if err := conn.WriteJSON(ServerMessage{Type: "progress", RunID: runID, Progress: &progress}); err != nil {
				log.WithError(err).Warn("error sending progress")
				return
			}

			switch {
			case u.Err != nil:
				log.WithError(u.Err).Error("run finished with broken bookkeeping")
				if err := conn.WriteJSON(ServerMessage{Type: "error", RunID: runID, Error: u.Err.Error()}); err != nil {
					log.WithError(err).Warn("error sending run error")
					return
				}
				if err := conn.WriteJSON(statusMessage(state)); err != nil {
					log.WithError(err).Warn("error sending status")
					return
				}
			case u.Summary != nil:
				s.metrics.observeSummary(u.Summary)
				log.WithFields(logrus.Fields{"run": runID, "admitted": u.Summary.Admitted}).Info("run completed")
				if err := conn.WriteJSON(ServerMessage{Type: "report", RunID: runID, Summary: u.Summary}); err != nil {
					log.WithError(err).Warn("error sending report")
					return
				}
				if err := conn.WriteJSON(statusMessage(state)); err != nil {
					log.WithError(err).Warn("error sending status")
					return
				}
			}
		}
	}
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("error upgrading connection")
		return
	}
	defer conn.Close()

	// Wrap connection with mutex for safe concurrent writes
	safeConn := &safeConn{Conn: conn}

	log := s.log.WithField("client", r.RemoteAddr)
	log.Info("client connected")

	reply := func(msg ServerMessage) {
		if err := safeConn.WriteJSON(msg); err != nil {
			log.WithError(err).Warn("error sending reply")
		}
	}

	state, err := newSimState(s.opts.defaults, log)
	if err != nil {
		log.WithError(err).Error("error creating simulator")
		reply(ServerMessage{Type: "error", Error: err.Error()})
		return
	}

	if err := safeConn.WriteJSON(statusMessage(state)); err != nil {
		log.WithError(err).Warn("error sending status")
		return
	}

	go s.uiUpdateLoop(safeConn, state, log)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("error reading message")
			}
			break
		}
		// A malformed command is the client's problem, not the connection's
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("rejected malformed command")
			reply(ServerMessage{Type: "error", Error: fmt.Sprintf("malformed command: %v", err)})
			continue
		}

		log.WithField("command", msg.Type).Debug("received command")

		switch msg.Type {
		case "start":
			state.start()
			log.Info("simulator started")
			reply(statusMessage(state))

		case "pause":
			state.pause()
			log.Info("simulator paused")
			reply(statusMessage(state))

		case "reset":
			if err := state.reset(); err != nil {
				reply(ServerMessage{Type: "error", Error: err.Error()})
				continue
			}
			log.Info("simulator reset")
			reply(statusMessage(state))

		case "config_update":
			if msg.Config == nil {
				reply(ServerMessage{Type: "error", Error: "config_update without config"})
				continue
			}
			if err := state.updateConfig(*msg.Config); err != nil {
				log.WithError(err).Warn("rejected config update")
				reply(ServerMessage{Type: "error", Error: err.Error()})
				continue
			}
			log.WithField("model", msg.Config.Model()).Info("config updated")
			reply(statusMessage(state))

		default:
			reply(ServerMessage{Type: "error", Error: fmt.Sprintf("unknown command %q", msg.Type)})
		}
	}

	// Clean up
	state.stop()
	log.Info("client disconnected")
}

func (s *server) quitHandler(w http.ResponseWriter, r *http.Request) {
	s.log.Info("shutdown requested via /quitquitquit")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Server shutting down...")
	s.quitOnce.Do(func() { close(s.quit) })
}

// serve runs the HTTP server until ctx is done or /quitquitquit is hit
func (s *server) serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.routes()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.log.WithFields(logrus.Fields{
		"addr":      addr,
		"websocket": "/ws",
		"metrics":   "/metrics",
	}).Info("server starting")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Stream queueing simulations to websocket clients",
		Long: `Serves a websocket endpoint (/ws) where each client drives its own
simulation with start, pause, reset and config_update commands, and a
Prometheus endpoint (/metrics) with the live and last completed run.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			v.SetEnvPrefix("QUESIM")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			lvl, err := logrus.ParseLevel(v.GetString("log-level"))
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			logrus.SetLevel(lvl)

			defaults := simulator.DefaultConfig()
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", cfgFile, err)
				}
				if err := v.Unmarshal(&defaults, viper.DecodeHook(simulator.ConfigDecodeHook())); err != nil {
					return fmt.Errorf("decode config: %w", err)
				}
				if err := defaults.Validate(); err != nil {
					return err
				}
			}

			opts := serverOptions{
				tick:      v.GetDuration("tick"),
				timeStep:  v.GetFloat64("time-step"),
				maxEvents: v.GetInt("max-events"),
				defaults:  defaults,
			}
			if opts.tick <= 0 || opts.timeStep <= 0 {
				return errors.New("--tick and --time-step must be positive")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv := newServer(opts, logrus.WithField("component", "server"))
			err = srv.serve(ctx, v.GetString("addr"))
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.Duration("tick", 500*time.Millisecond, "wall-clock time between UI updates")
	f.Float64("time-step", 1.0, "simulated time advanced per UI update")
	f.Int("max-events", 1000, "trace events streamed per update (0 = all)")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&cfgFile, "config", "", "default simulation config for new clients (YAML or JSON)")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
