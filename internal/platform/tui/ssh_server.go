package tui

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/snakeq/internal/config"
	"github.com/vovakirdan/snakeq/internal/core"
	"github.com/vovakirdan/snakeq/internal/qlearn"
	"github.com/vovakirdan/snakeq/internal/snake"
	"github.com/vovakirdan/snakeq/internal/storage"
)

// sshSourceID is the source name SSH sessions are recorded under.
const sshSourceID = "agent-ssh"

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.snakeq/host_key.
	HostKeyPath string

	// Config supplies the grid, the learner parameters and the paths of
	// the table and the run database.
	Config config.Config

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		Config:      config.Default(),
		IdleTimeout: 30 * time.Minute,
	}
}

// SSHServer serves read-only agent sessions over SSH. Every session gets its
// own environment and its own copy of the table with training off.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	store  *storage.Store
	table  *qlearn.Table
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "snakeq-ssh",
	})

	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}

	table, err := qlearn.ReadTableFile(cfg.Config.Persistence.TablePath)
	if err != nil {
		return nil, err
	}
	logger.Info("table loaded", "path", cfg.Config.Persistence.TablePath, "states", table.Len())

	// Open storage
	store, err := storage.Open(cfg.Config.Persistence.DBPath)
	if err != nil {
		logger.Warn("could not open run database", "error", err)
		// Continue without storage
		store = nil
	}

	srv := &SSHServer{
		config: cfg,
		store:  store,
		table:  table,
		logger: logger,
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".snakeq", "host_key")
	}

	// Ensure host key directory exists
	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// newSession builds the environment and the frozen learner of one session.
func (s *SSHServer) newSession(seed int64) (*snake.Env, *qlearn.Learner, error) {
	cfg := s.config.Config
	learner := qlearn.New(cfg.Learner, cfg.Rewards, rand.New(rand.NewSource(seed)))
	learner.SetTable(s.table.Clone())
	learner.SetTraining(false)

	env, err := snake.New(cfg.Grid, rand.New(rand.NewSource(seed+1)), learner)
	if err != nil {
		return nil, nil, err
	}
	return env, learner, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	seed := time.Now().UnixNano()
	env, _, err := s.newSession(seed)
	if err != nil {
		s.logger.Error("could not create session", "user", sshSession.User(), "error", err)
		return nil, nil
	}

	var runID int64
	if s.store != nil {
		cfg := s.config.Config
		cfg.Learner.Training = false
		if runID, err = s.store.StartRun(sshSourceID, cfg); err != nil {
			s.logger.Warn("could not start run", "user", sshSession.User(), "error", err)
		}
	}

	model := NewModel(env, Options{
		SourceID: sshSourceID,
		Store:    s.store,
		RunID:    runID,
		Logger:   s.logger.With("user", sshSession.User()),
		Runtime: core.RuntimeConfig{
			ScreenW:      pty.Window.Width,
			ScreenH:      pty.Window.Height,
			TickInterval: s.config.Config.TickInterval(),
			Seed:         seed,
		},
	})

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-done
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.store != nil {
		s.store.Close()
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
