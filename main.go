// Command tetrisgame runs the Tetris game server.
//
// It has three commands:
//  1. "server" runs the HTTP server exposing the REST API, WebSocket and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" plays a local game in the terminal
//
// Flags control host/port, config and session directories, logging, and
// optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/tetrisgame/api"
	"github.com/wricardo/mcp-training/tetrisgame/game/config"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
	"github.com/wricardo/mcp-training/tetrisgame/game/session"
	"github.com/wricardo/mcp-training/tetrisgame/logx"
	"github.com/wricardo/mcp-training/tetrisgame/transport/mcp"
	"github.com/wricardo/mcp-training/tetrisgame/transport/websocket"
	"github.com/wricardo/mcp-training/tetrisgame/ui/terminal"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tetris Game Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", app.Name, err)
		os.Exit(1)
	}
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", envErr)
	}
}

func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "debug, info, warn or error",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "log-json",
			Usage:   "log as JSON instead of console text",
			Sources: cli.EnvVars("LOG_JSON"),
		},
	}
}

func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Value:   "configs",
		Usage:   "directory containing game configurations",
		Sources: cli.EnvVars("CONFIG_DIR"),
	}
}

func withFlags(flags ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, f := range flags {
		out = append(out, f...)
	}
	return out
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "tetrisgame",
		Usage:   AppName,
		Version: Version,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Flags: withFlags(logFlags(), []cli.Flag{
					configDirFlag(),
					&cli.StringFlag{
						Name:    "host",
						Value:   "localhost",
						Usage:   "HTTP server host",
						Sources: cli.EnvVars("HOST"),
					},
					&cli.IntFlag{
						Name:    "port",
						Value:   8080,
						Usage:   "HTTP server port",
						Sources: cli.EnvVars("PORT"),
					},
					&cli.StringFlag{
						Name:    "sessions-dir",
						Value:   "sessions",
						Usage:   "directory where session snapshots are stored",
						Sources: cli.EnvVars("SESSIONS_DIR"),
					},
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "expose the server through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-auth",
						Usage:   "ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "custom ngrok domain (optional)",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				}),
				Action: runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server backed by the REST API",
				Flags: withFlags(logFlags(), []cli.Flag{
					configDirFlag(),
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "REST API to use; an internal one is started if it is not reachable",
						Sources: cli.EnvVars("TETRIS_API_URL"),
					},
					&cli.StringFlag{
						Name:    "sessions-dir",
						Value:   "sessions",
						Usage:   "session directory of the internal server",
						Sources: cli.EnvVars("SESSIONS_DIR"),
					},
				}),
				Action: runStdioMCP,
			},
			{
				Name:  "play",
				Usage: "play a local game in the terminal",
				Flags: []cli.Flag{
					configDirFlag(),
					&cli.StringFlag{
						Name:  "config",
						Usage: "config ID to play (default config when empty)",
					},
					&cli.BoolFlag{
						Name:  "sound",
						Usage: "play tones on line clears and game over",
					},
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "write debug logs to this file",
					},
				},
				Action: runPlay,
			},
		},
	}
}

func newLogger(c *cli.Command, name string) *logx.Logx {
	asJSON := c.Bool("log-json")
	return logx.New(logx.Options{
		Level: c.String("log-level"),
		JSON:  asJSON,
		Dev:   !asJSON,
		Name:  name,
	})
}

// services bundles the long lived components of a server
type services struct {
	configs     *config.Manager
	persistence *session.FilePersistence
	sessions    *session.Manager
	game        service.GameService
	hub         *websocket.Hub
	log         logx.Logger
}

// newServices wires config and session managers, the game service and the
// WebSocket hub. Gravity ticks of every session are broadcast to its
// WebSocket clients.
func newServices(configDir, sessionsDir string, log logx.Logger) (*services, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(sessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, session.WithLogger(log.With("component", "sessions")))
	gameService := service.NewGameService(sessionManager, configManager, service.WithLogger(log.With("component", "service")))

	hub := websocket.NewHub(
		websocket.WithLogger(log.With("component", "websocket")),
		websocket.WithActionHandler(func(ctx context.Context, sessionID, action string) (*engine.GameState, error) {
			result, err := gameService.Act(ctx, sessionID, action, false)
			if err != nil {
				return nil, err
			}
			return result.GameState, nil
		}),
	)
	sessionManager.SetTickListener(func(sessionID string, _ engine.TickResult, state *engine.GameState) {
		hub.BroadcastToSession(sessionID, state)
	})

	// Load persisted sessions once ticks have somewhere to go
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warnf("failed to load persisted sessions: %v", err)
	}

	return &services{
		configs:     configManager,
		persistence: persistence,
		sessions:    sessionManager,
		game:        gameService,
		hub:         hub,
		log:         log,
	}, nil
}

// start runs the hub and the maintenance routines until ctx is done
func (s *services) start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.cleanupRoutine(ctx)
	}()
	go func() {
		defer wg.Done()
		s.filesystemSyncRoutine(ctx)
	}()
}

// stop saves every session and stops their gravity goroutines
func (s *services) stop() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		s.log.Warnf("failed to save sessions on shutdown: %v", err)
	}
	s.sessions.Close()
}

// cleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func (s *services) cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sessions.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				s.log.Infof("cleaned up %d expired sessions", removed)
			}
		}
	}
}

// filesystemSyncRoutine removes sessions from memory when their files are deleted
func (s *services) filesystemSyncRoutine(ctx context.Context) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneDeletedSessions()
		}
	}
}

func (s *services) pruneDeletedSessions() int {
	pruned := 0
	for _, sess := range s.sessions.List() {
		if !s.persistence.Exists(sess.ID) {
			if err := s.sessions.DeleteFromMemory(sess.ID); err == nil {
				pruned++
				s.log.Infof("pruned session %s from memory (file deleted)", sess.ID)
			}
		}
	}
	return pruned
}

// handler mounts the REST API and the /mcp endpoint. The MCP tools call the
// REST API at baseURL.
func (s *services) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(s.game, s.hub, api.WithLogger(s.log.With("component", "api")))
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runServer starts the HTTP server and, if enabled, an ngrok tunnel
func runServer(ctx context.Context, c *cli.Command) error {
	log := newLogger(c, "server")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(c.String("config-dir"), c.String("sessions-dir"), log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", c.String("host"), c.Int("port"))
	handler := svc.handler("http://" + addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	svc.start(bgCtx, &wg)

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting %s v%s", AppName, Version)
		log.Infof("HTTP server listening on %s", addr)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if c.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(bgCtx, log, c.String("ngrok-auth"), c.String("ngrok-domain"), handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		log.Errorf("HTTP server failed: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warnf("HTTP server shutdown error: %v", shutdownErr)
	}

	cancelBackground()
	wg.Wait()
	svc.stop()
	log.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled
func runNgrok(ctx context.Context, log logx.Logger, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Infof("using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Errorf("failed to start ngrok tunnel: %v", err)
		return
	}

	// http.Serve returns once the tunnel is closed
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warnf("failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Infof("ngrok tunnel established: %s", ngrokURL)
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Errorf("ngrok server error: %v", err)
	}
	log.Info("ngrok tunnel closed")
}

// apiAvailable reports whether a game server answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when
// reachable; otherwise it starts an internal HTTP API bound to a random
// loopback port and targets that. Logs go to stderr since stdout carries
// the protocol.
func runStdioMCP(ctx context.Context, c *cli.Command) error {
	log := newLogger(c, "mcp")
	defer log.Sync()

	baseURL := c.String("api-url")
	if apiAvailable(ctx, baseURL) {
		log.Infof("external API server found at %s, using it for MCP", baseURL)
		return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
	}

	log.Infof("no API server at %s, starting internal HTTP server", baseURL)

	svc, err := newServices(c.String("config-dir"), c.String("sessions-dir"), log)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	internalURL := "http://" + listener.Addr().String()

	bgCtx, cancelBackground := context.WithCancel(ctx)
	var wg sync.WaitGroup
	svc.start(bgCtx, &wg)

	httpServer := &http.Server{Handler: svc.handler(internalURL)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("internal HTTP server error: %v", err)
		}
	}()

	log.Infof("MCP stdio server ready (using internal HTTP server at %s)", internalURL)
	err = server.ServeStdio(mcp.NewClient(internalURL).GetMCPServer())

	httpServer.Close()
	cancelBackground()
	wg.Wait()
	svc.stop()
	return err
}

// runPlay plays a local game in the terminal
func runPlay(ctx context.Context, c *cli.Command) error {
	log := logx.Logger(logx.Nop())
	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log = logx.New(logx.Options{Level: "debug", Output: f, Name: "play"})
	}

	configs, err := config.NewManager(c.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}
	gameConfig := configs.GetDefault()
	if id := c.String("config"); id != "" {
		if gameConfig, err = configs.LoadConfig(id); err != nil {
			return err
		}
	}

	eng, err := engine.NewEngine(gameConfig)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	opts := []terminal.Option{terminal.WithLogger(log)}
	if c.Bool("sound") {
		sound, err := terminal.NewBeepSound()
		if err != nil {
			log.Warnf("sound disabled: %v", err)
		} else {
			defer sound.Close()
			opts = append(opts, terminal.WithSound(sound))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = terminal.New(screen, eng, opts...).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
