// Command heat-race starts the Heat race server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (each with an environment variable) control host/port, map and session
// directories, an optional NATS event feed, debug logging, and optional ngrok
// tunneling for easy external access during development.
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

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/heat-race/api"
	"github.com/wricardo/heat-race/game/config"
	"github.com/wricardo/heat-race/game/service"
	"github.com/wricardo/heat-race/game/session"
	"github.com/wricardo/heat-race/log"
	"github.com/wricardo/heat-race/transport/mcp"
	natspub "github.com/wricardo/heat-race/transport/nats"
	"github.com/wricardo/heat-race/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Heat Race Server"
)

// Settings are the resolved command line options
type Settings struct {
	Host         string
	Port         int
	ConfigDir    string
	SessionsDir  string
	SessionTTL   time.Duration
	NatsURL      string
	Debug        bool
	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

// Addr is the HTTP listen address
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Services are the long-lived components shared by both modes
type Services struct {
	Game     service.GameService
	Hub      *websocket.Hub
	Sessions *session.Manager
	closers  []func()
}

// Close releases external connections
func (s *Services) Close() {
	for _, c := range s.closers {
		c()
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "heat-race",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing map configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory where sessions are persisted", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Remove sessions not accessed for this long", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.StringFlag{Name: "nats-url", Usage: "Publish session events to this NATS server (optional)", Sources: cli.EnvVars("NATS_URL")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioCommand,
			},
		},
		Action: runServerCommand,
	}
}

// settingsFrom reads the flags of cmd or any of its parents
func settingsFrom(cmd *cli.Command) Settings {
	return Settings{
		Host:         cmd.String("host"),
		Port:         int(cmd.Int("port")),
		ConfigDir:    cmd.String("config-dir"),
		SessionsDir:  cmd.String("sessions-dir"),
		SessionTTL:   cmd.Duration("session-ttl"),
		NatsURL:      cmd.String("nats-url"),
		Debug:        cmd.Bool("debug"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

// main loads .env, parses flags and runs the selected mode.
func main() {
	// Load .env file if it exists, before flags read their environment sources
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func initLogger(settings Settings) {
	if settings.Debug {
		log.InitDevelopmentLogger()
	} else {
		log.InitProductionLogger()
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	settings := settingsFrom(cmd)
	initLogger(settings)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "server"))

	services, err := initializeServices(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	return runHTTPServer(ctx, settings, services)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	settings := settingsFrom(cmd)
	// stdout carries the MCP protocol, so logs stay quiet unless debugging
	if settings.Debug {
		log.InitDevelopmentLogger()
	}
	defer log.Sync()

	services, err := initializeServices(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	return runStdioMCPWithInternalServer(ctx, settings, services)
}

// newRouter combines the REST API with a POST /mcp endpoint backed by mcpClient
func newRouter(apiServer *api.Server, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns when ctx is done.
func runHTTPServer(ctx context.Context, settings Settings, services *Services) error {
	addr := settings.Addr()
	apiServer := api.NewServer(services.Game, services.Hub)
	mainRouter := newRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// WebSocket connections outlive any write timeout
		IdleTimeout: 60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>&player=<player_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	if settings.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings, mainRouter)
		}()
	}

	<-ctx.Done()
	log.Logger.Info("shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if err := services.Sessions.SaveAllSessions(); err != nil {
		log.Logger.Warn("failed to save sessions on shutdown", zap.Error(err))
	}

	wg.Wait()
	log.Logger.Info("server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, settings Settings, handler http.Handler) {
	if settings.NgrokAuth == "" {
		log.Logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		log.Logger.Info("using custom ngrok domain", zap.String("domain", settings.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuth))
	if err != nil {
		log.Logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	log.Logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Logger.Warn("ngrok server error", zap.Error(err))
	}
	log.Logger.Info("ngrok tunnel closed")
}

// initializeServices wires map/session managers, the event publishers and the game service.
// It also starts background routines that prune stale sessions; they stop with ctx.
func initializeServices(ctx context.Context, settings Settings) (*Services, error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(settings.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(settings.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	services := &Services{Sessions: sessionManager, Hub: websocket.NewHub()}
	publishers := service.Publishers{services.Hub}

	if settings.NatsURL != "" {
		conn, err := natspub.Connect(settings.NatsURL)
		if err != nil {
			return nil, err
		}
		services.closers = append(services.closers, conn.Close)
		publishers = append(publishers, natspub.NewPublisher(conn))
		log.Logger.Info("publishing events to nats", zap.String("url", settings.NatsURL))
	}

	services.Game = service.NewGameService(sessionManager, configManager, service.WithEventPublisher(publishers))
	services.Hub.SetBackend(services.Game)
	go services.Hub.Run(ctx)

	go sessionCleanupRoutine(ctx, sessionManager, settings.SessionTTL)
	go filesystemSyncRoutine(ctx, sessionManager, persistence)

	return services, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the provided retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// filesystemSyncRoutine periodically syncs in-memory sessions with filesystem state.
// It removes sessions from memory when their corresponding files are deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if pruned := pruneDeletedSessions(manager, persistence); pruned > 0 {
			log.Logger.Info("filesystem sync pruned orphaned sessions", zap.Int("pruned", pruned))
		}
	}
}

// pruneDeletedSessions drops in-memory sessions whose files are gone
func pruneDeletedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Logger.Info("pruned session from memory (file deleted)", zap.String("session", sess.ID))
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, settings Settings, services *Services) error {
	baseURL := "http://" + settings.Addr()

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		log.Logger.Debug("external API server found", zap.String("url", baseURL))
	} else {
		if resp != nil {
			resp.Body.Close()
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: api.NewServer(services.Game, services.Hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Warn("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Logger.Debug("internal HTTP server started", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
