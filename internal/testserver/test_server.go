package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/domain/prodlog"
	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/domain/user"
	"github.com/lineside/mes/internal/media"
	"github.com/lineside/mes/internal/metrics"
	"github.com/lineside/mes/internal/sqlite"
	"github.com/lineside/mes/internal/transport"
)

// TestServer is a fully wired HTTP server over an in-memory database,
// used by the functional tests.
type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Users  *user.Service
}

func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	productRepo := sqlite.NewProductRepository(db)
	partRepo := sqlite.NewPartRepository(db)
	instructionRepo := sqlite.NewInstructionRepository(db)
	logRepo := sqlite.NewProductionLogRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	prefRepo := sqlite.NewPreferenceRepository(db)

	mediaStore, err := media.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	productSvc := product.NewService(productRepo, partRepo, nil)
	instructionSvc := instruction.NewService(instructionRepo, nil)
	logSvc := prodlog.NewService(logRepo, instructionRepo, nil)
	userSvc := user.NewService(userRepo, prefRepo, nil)

	auth := transport.NewAuth("test-secret", time.Hour)
	router := transport.NewServer(
		discardLogger(), auth, userSvc, productSvc, instructionSvc, logSvc,
		instructionRepo, mediaStore, metrics.New(),
	)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server: server,
		DB:     db,
		Users:  userSvc,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// Login creates a user with the given role and returns a bearer token
// for it.
func (ts *TestServer) Login(t *testing.T, username string, role user.Role) string {
	t.Helper()

	_, err := ts.Users.Create(context.Background(), username, "s3cret-pass", role)
	require.NoError(t, err)

	var out struct {
		Token string `json:"token"`
	}
	status := ts.Do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": username, "password": "s3cret-pass"}, &out)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out.Token)

	return out.Token
}

// Do sends a JSON request and decodes the JSON response into out when
// out is non-nil. It returns the response status code.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
