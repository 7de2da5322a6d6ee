package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroeau/washpro-technician/internal/client/api"
	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/client/notify"
	"github.com/zeroeau/washpro-technician/internal/client/poller"
	"github.com/zeroeau/washpro-technician/internal/client/services"
	"github.com/zeroeau/washpro-technician/internal/client/storage"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newREPLApp wires a real engine and session over an in-memory database and
// a stub backend, with the repl reading from a script.
func newREPLApp(t *testing.T, backend http.Handler, script string) *App {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	repos, err := storage.InitDatabase(context.Background(), dsn)
	require.NoError(t, err)
	repos.DB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = repos.DB.Close() })

	log := testLogger()
	apiClient := api.NewRESTClient(srv.URL, "test-key")

	return &App{
		log:        log,
		repos:      repos,
		engine:     services.NewSyncEngine(apiClient, repos.Bookings, repos.SyncState, log),
		session:    services.NewSessionService(apiClient, repos.SyncState, log),
		dispatcher: notify.NewDispatcher(&notify.LogSink{Log: log}, apiClient, log),
		reader:     bufio.NewReader(strings.NewReader(script)),
	}
}

func stubBackend(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/technicians", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"technicians": []models.Technician{
				{ID: "t1", FullName: "Nadia K.", Phone: "+212611111111", Zone: "Maarif", IsActive: true},
			},
		})
	})
	mux.HandleFunc("GET /api/admin/bookings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"bookings": []models.Booking{
				{ID: "b1", Status: models.StatusConfirmed, TechnicianID: "t1", Address: "Rue 1"},
			},
		})
	})
	mux.HandleFunc("POST /api/technicians/push-token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	return mux
}

func TestRepl_LoginSyncAndLogout(t *testing.T) {
	script := strings.Join([]string{
		"login",
		"+212611111111", // phone prompt
		"missions",
		"sync",
		"unread",
		"markread",
		"logout",
		"exit",
	}, "\n") + "\n"

	app := newREPLApp(t, stubBackend(t), script)
	app.repl(context.Background())

	// logout clears the session and the local state.
	assert.Nil(t, app.technician.Load())
	ids, err := app.repos.SyncState.KnownIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRepl_CommandsRequireLogin(t *testing.T) {
	script := "missions\nsync\nopen b1\nexit\n"
	app := newREPLApp(t, stubBackend(t), script)

	app.repl(context.Background())

	assert.Nil(t, app.technician.Load())
	assert.Empty(t, app.engine.Bookings())
}

func TestRepl_LoginPersistsSession(t *testing.T) {
	script := "login\n+212611111111\nexit\n"
	app := newREPLApp(t, stubBackend(t), script)

	app.repl(context.Background())

	require.NotNil(t, app.technician.Load())
	assert.Equal(t, "t1", app.technician.Load().ID)

	saved, err := app.repos.SyncState.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", saved.ID)

	// login triggered an immediate sync; the cache holds the assignment.
	list := app.engine.Bookings()
	require.Len(t, list, 1)
	assert.Equal(t, "b1", list[0].ID)
}

func TestRepl_UnknownPhoneStaysLoggedOut(t *testing.T) {
	script := "login\n+212600000000\nexit\n"
	app := newREPLApp(t, stubBackend(t), script)

	app.repl(context.Background())

	assert.Nil(t, app.technician.Load())
}

func TestRepl_PollerTicksDuringLoginLogout(t *testing.T) {
	// Repeated login/logout on the repl goroutine while the poller's cron
	// goroutine keeps reading the session.
	script := strings.Repeat("login\n+212611111111\nlogout\n", 50) + "exit\n"
	app := newREPLApp(t, stubBackend(t), script)

	p, err := poller.New(app.engine, 10*time.Millisecond,
		func(ctx context.Context) (string, bool) {
			tec := app.technician.Load()
			if tec == nil {
				return "", false
			}
			return tec.ID, true
		},
		func(ctx context.Context, fresh []models.Booking) {
			app.dispatcher.OnNewBookings(ctx, fresh)
		},
		testLogger(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	app.repl(ctx)

	assert.Nil(t, app.technician.Load())
}
