package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/heat-race/api"
	"github.com/wricardo/heat-race/game/config"
	"github.com/wricardo/heat-race/game/engine"
	"github.com/wricardo/heat-race/game/service"
	"github.com/wricardo/heat-race/game/session"
	"github.com/wricardo/heat-race/transport/mcp"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Heat Race Server", AppName)
}

// parseSettings runs the command with the selected action replaced by a capture
func parseSettings(t *testing.T, args ...string) (Settings, string) {
	t.Helper()
	cmd := newCommand()

	var got Settings
	var mode string
	capture := func(name string) cli.ActionFunc {
		return func(ctx context.Context, c *cli.Command) error {
			got = settingsFrom(c)
			mode = name
			return nil
		}
	}
	cmd.Action = capture("default")
	for _, sub := range cmd.Commands {
		sub.Action = capture(sub.Name)
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"heat-race"}, args...)))
	return got, mode
}

func TestFlagDefaults(t *testing.T) {
	settings, mode := parseSettings(t)

	assert.Equal(t, "default", mode)
	assert.Equal(t, 8080, settings.Port)
	assert.Equal(t, "localhost", settings.Host)
	assert.Equal(t, "configs", settings.ConfigDir)
	assert.Equal(t, "sessions", settings.SessionsDir)
	assert.Equal(t, 24*time.Hour, settings.SessionTTL)
	assert.Empty(t, settings.NatsURL)
	assert.False(t, settings.NgrokEnabled)
	assert.Equal(t, "localhost:8080", settings.Addr())
}

func TestFlagsAndModes(t *testing.T) {
	settings, mode := parseSettings(t, "--port", "9090", "--host", "0.0.0.0", "--debug", "stdio-mcp")
	assert.Equal(t, "stdio-mcp", mode)
	assert.Equal(t, "0.0.0.0:9090", settings.Addr())
	assert.True(t, settings.Debug)

	_, mode = parseSettings(t, "mcp")
	assert.Equal(t, "stdio-mcp", mode)

	_, mode = parseSettings(t, "http")
	assert.Equal(t, "server", mode)
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("CONFIG_DIR", "/srv/maps")
	t.Setenv("SESSIONS_DIR", "/srv/sessions")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NGROK_ENABLED", "true")
	t.Setenv("NGROK_AUTH_TOKEN", "secret")

	settings, _ := parseSettings(t, "server")

	assert.Equal(t, 7070, settings.Port)
	assert.Equal(t, "/srv/maps", settings.ConfigDir)
	assert.Equal(t, "/srv/sessions", settings.SessionsDir)
	assert.Equal(t, "nats://localhost:4222", settings.NatsURL)
	assert.True(t, settings.NgrokEnabled)
	assert.Equal(t, "secret", settings.NgrokAuth)
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	return Settings{
		Host:        "localhost",
		Port:        8080,
		ConfigDir:   "configs",
		SessionsDir: t.TempDir(),
		SessionTTL:  time.Hour,
	}
}

func TestInitializeServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := initializeServices(ctx, testSettings(t))
	require.NoError(t, err)
	defer services.Close()

	info, err := services.Game.CreateSession(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "usa", info.MapID)

	_, err = services.Game.JoinSession(ctx, info.ID, "ann", "Ann")
	require.NoError(t, err)
	_, err = services.Game.StartSession(ctx, info.ID)
	require.NoError(t, err)

	state, err := services.Game.GetState(ctx, info.ID, "ann")
	require.NoError(t, err)
	assert.Len(t, state.Players[0].Hand, engine.HandSize)
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	settings := testSettings(t)
	settings.ConfigDir = "/non/existent/path"

	_, err := initializeServices(context.Background(), settings)
	assert.Error(t, err)
}

func TestInitializeServices_UnreachableNats(t *testing.T) {
	settings := testSettings(t)
	settings.NatsURL = "nats://127.0.0.1:1"

	_, err := initializeServices(context.Background(), settings)
	assert.Error(t, err)
}

func TestPruneDeletedSessions(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}
	settings := testSettings(t)
	initCtx, stopRoutines := context.WithCancel(context.Background())
	services, err := initializeServices(initCtx, settings)
	require.NoError(t, err)
	defer services.Close()
	// the background sync would race with the explicit prune below
	stopRoutines()

	ctx := context.Background()
	kept, err := services.Game.CreateSession(ctx, "test", 1)
	require.NoError(t, err)
	removed, err := services.Game.CreateSession(ctx, "test", 1)
	require.NoError(t, err)
	require.NoError(t, services.Sessions.Save(kept.ID))
	require.NoError(t, services.Sessions.Save(removed.ID))

	require.NoError(t, os.Remove(filepath.Join(settings.SessionsDir, removed.ID+".json")))

	persistence, err := session.NewFilePersistence(settings.SessionsDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pruneDeletedSessions(services.Sessions, persistence))

	_, err = services.Game.GetSession(ctx, kept.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, services.Sessions.Count())
	assert.Zero(t, pruneDeletedSessions(services.Sessions, nil))
}

func TestMCPEndpoint(t *testing.T) {
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	svc := service.NewGameService(session.NewManager(), configs)
	router := newRouter(api.NewServer(svc, nil), mcp.NewClient("http://localhost:0"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"jsonrpc":"2.0"`)
}
