// Command parques starts the Parqués game server.
//
// It supports two modes:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, ruleset directory, log level and log file.
// Every flag can also be set from the environment or a .env file.
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
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wricardo/parques/api"
	"github.com/wricardo/parques/game/config"
	"github.com/wricardo/parques/game/service"
	"github.com/wricardo/parques/game/session"
	"github.com/wricardo/parques/telemetry"
	"github.com/wricardo/parques/transport/mcp"
	"github.com/wricardo/parques/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Parqués Server"
)

const (
	cleanupInterval = time.Hour
	defaultTTL      = 24 * time.Hour
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("error loading .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Running without a subcommand serves HTTP.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "parques",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
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
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing rulesets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Write logs to a rotated file instead of stderr",
				Sources: cli.EnvVars("LOG_FILE"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   defaultTTL,
				Usage:   "Drop sessions idle for longer than this",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, setupLogging(cmd.String("log-level"), cmd.String("log-file"))
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server backed by an HTTP API",
				Action:  runMCP,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// setupLogging configures the global logrus logger
func setupLogging(level, file string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if file != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
			LocalTime:  true,
			Compress:   true,
		})
		log.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}

func listenAddr(cmd *cli.Command) string {
	return fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
}

// runServe starts the HTTP server and blocks until ctx is cancelled.
func runServe(ctx context.Context, cmd *cli.Command) error {
	log.WithField("version", Version).Infof("starting %s", AppName)

	shutdownTracing, err := telemetry.Setup(ctx, Version)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("telemetry shutdown failed")
		}
	}()

	gameService, err := initializeServices(ctx, cmd.String("config-dir"), cmd.Duration("session-ttl"))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	addr := listenAddr(cmd)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      newRouter(gameService, hub, "http://"+addr),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", addr)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newRouter mounts the REST API at the root and the MCP JSON-RPC endpoint
// at /mcp. The MCP tools call back into the API at baseURL.
func newRouter(gameService service.GameService, hub *websocket.Hub, baseURL string) http.Handler {
	mcpClient := mcp.NewClient(baseURL)

	router := http.NewServeMux()
	router.Handle("/", api.NewServer(gameService, hub))
	router.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.WithError(err).Warn("failed to encode MCP response")
		}
	})
	return router
}

// initializeServices wires the config and session managers into the game
// service. It also starts the ruleset watcher and the idle-session sweeper,
// both stopped by ctx.
func initializeServices(ctx context.Context, configDir string, ttl time.Duration) (service.GameService, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	log.WithFields(log.Fields{"dir": configDir, "rulesets": configManager.Count()}).Info("rulesets loaded")

	go func() {
		if err := configManager.Watch(ctx); err != nil {
			log.WithError(err).Warn("config watcher stopped")
		}
	}()

	sessionManager := session.NewManager()
	go sessionCleanupRoutine(ctx, sessionManager, cleanupInterval, ttl)

	return service.NewGameService(sessionManager, configManager), nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(ttl)
		}
	}
}

// runMCP runs an MCP stdio server. It reuses an API already listening on
// host:port; otherwise it starts an internal one on a random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout belongs to the MCP protocol
	if cmd.String("log-file") == "" {
		log.SetOutput(os.Stderr)
	}

	externalURL := "http://" + listenAddr(cmd)
	baseURL := externalURL

	if !apiAvailable(externalURL) {
		log.Info("no external API server found, starting internal HTTP server")

		gameService, err := initializeServices(ctx, cmd.String("config-dir"), cmd.Duration("session-ttl"))
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()
	}

	log.WithField("api", baseURL).Info("MCP stdio server ready")
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// apiAvailable probes the health endpoint of an existing server
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
