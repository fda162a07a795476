package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supporting-smart-system/config"
	"supporting-smart-system/internal/api/handler"
	"supporting-smart-system/internal/api/middleware"
	"supporting-smart-system/internal/repository/repotest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupEngine(t *testing.T, storage config.StorageConfig) *gin.Engine {
	t.Helper()
	repo := repotest.NewRepo(t, repotest.OpenSQLite(t))
	return Setup(Options{
		Config:  &config.Config{Storage: storage},
		Handler: &handler.Handler{},
		Data:    handler.NewDataHandler(repo, zap.NewNop()),
		Logger:  zap.NewNop(),
	})
}

func do(r *gin.Engine, method, path, key, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(middleware.StorageKeyHeader, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSetup_StorageSurfaceHiddenByDefault(t *testing.T) {
	r := setupEngine(t, config.StorageConfig{Driver: config.DriverSQLite})

	if w := do(r, "PATCH", "/data?table=users&id=6", "", `{"role":"Admin"}`); w.Code != http.StatusNotFound {
		t.Errorf("PATCH /data: expected 404, got %d", w.Code)
	}
	if w := do(r, "GET", "/data?table=users&id=6", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /data: expected 404, got %d", w.Code)
	}
	if w := do(r, "POST", "/init?reset=true", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("POST /init: expected 404, got %d", w.Code)
	}
}

func TestSetup_StorageSurfaceRequiresKey(t *testing.T) {
	const key = "0123456789abcdef-storage"
	r := setupEngine(t, config.StorageConfig{Driver: config.DriverSQLite, ExposeData: true, DataAPIKey: key})

	if w := do(r, "PATCH", "/data?table=users&id=6", "", `{"role":"Admin"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("without key: expected 401, got %d", w.Code)
	}
	if w := do(r, "POST", "/init?reset=true", "wrong-key", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", w.Code)
	}

	w := do(r, "GET", "/data?table=users&id=6", key, "")
	if w.Code != http.StatusOK {
		t.Fatalf("with key: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"role":"Analyst"`) {
		t.Errorf("unexpected user payload: %s", w.Body.String())
	}
}

func TestSetup_EmptyKeyRejectsEverything(t *testing.T) {
	r := setupEngine(t, config.StorageConfig{Driver: config.DriverSQLite, ExposeData: true})

	if w := do(r, "GET", "/data?table=users", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
