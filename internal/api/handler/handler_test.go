package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/service"
	apperrors "supporting-smart-system/pkg/errors"
	"supporting-smart-system/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	tokenResult *dto.TokenResponse
	err         error
	meResult    *dto.UserResponse

	logoutJTI     string
	logoutRefresh string
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.TokenResponse, error) {
	return m.tokenResult, m.err
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.tokenResult, m.err
}
func (m *mockAuthService) Refresh(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.tokenResult, m.err
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time, refresh string) error {
	m.logoutJTI = jti
	m.logoutRefresh = refresh
	return m.err
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.err
}

// ── Mock EquipmentService ──

type mockEquipmentService struct {
	items        []model.Equipment
	err          error
	importResult *dto.ImportResult

	gotID    string
	gotActor service.Actor
	imported []model.Equipment
}

func (m *mockEquipmentService) List(_ context.Context) ([]model.Equipment, error) {
	return m.items, m.err
}
func (m *mockEquipmentService) Get(_ context.Context, id string) (*model.Equipment, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return &model.Equipment{ID: id}, nil
}
func (m *mockEquipmentService) Create(_ context.Context, actor service.Actor, req *dto.EquipmentRequest) (*model.Equipment, error) {
	m.gotActor = actor
	if m.err != nil {
		return nil, m.err
	}
	return req.ToModel(), nil
}
func (m *mockEquipmentService) Update(_ context.Context, actor service.Actor, id string, req *dto.EquipmentRequest) (*model.Equipment, error) {
	m.gotActor, m.gotID = actor, id
	if m.err != nil {
		return nil, m.err
	}
	return req.ToModel(), nil
}
func (m *mockEquipmentService) Delete(_ context.Context, actor service.Actor, id string) error {
	m.gotActor, m.gotID = actor, id
	return m.err
}
func (m *mockEquipmentService) BulkImport(_ context.Context, _ service.Actor, items []model.Equipment) (*dto.ImportResult, error) {
	m.imported = items
	return m.importResult, m.err
}
func (m *mockEquipmentService) History(_ context.Context, id string) ([]dto.HistoryEntry, error) {
	m.gotID = id
	return nil, m.err
}
func (m *mockEquipmentService) Snapshot(_ context.Context) (*dto.Snapshot, error) {
	return &dto.Snapshot{}, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	items    []model.Equipment
	err      error
}

func (m *mockExportService) ExportXLSX(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportJSON(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ParseXLSX(_ io.Reader) ([]model.Equipment, error) {
	return m.items, m.err
}
func (m *mockExportService) ParseJSON(r io.Reader) ([]model.Equipment, error) {
	var items []model.Equipment
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, err
	}
	return items, m.err
}

// ── Mock JobRequestService ──

type mockJobRequestService struct {
	err       error
	gotID     int64
	gotStatus string
}

func (m *mockJobRequestService) List(_ context.Context) ([]dto.JobRequestResponse, error) {
	return nil, m.err
}
func (m *mockJobRequestService) Create(_ context.Context, _ service.Actor, _ *dto.JobRequestRequest) (*model.JobRequest, error) {
	return &model.JobRequest{ID: 1}, m.err
}
func (m *mockJobRequestService) UpdateContent(_ context.Context, _ service.Actor, id int64, _ *dto.JobRequestRequest) (*model.JobRequest, error) {
	m.gotID = id
	return &model.JobRequest{ID: id}, m.err
}
func (m *mockJobRequestService) ChangeStatus(_ context.Context, _ service.Actor, id int64, req *dto.JobStatusRequest) (*model.JobRequest, error) {
	m.gotID, m.gotStatus = id, req.Status
	if m.err != nil {
		return nil, m.err
	}
	return &model.JobRequest{ID: id, Status: req.Status}, nil
}
func (m *mockJobRequestService) Delete(_ context.Context, _ service.Actor, id int64) error {
	m.gotID = id
	return m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set("user_id", "2")
	c.Set("role", model.RoleSupporting)
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
}

// withAuth 模拟 JWT 中间件注入的认证信息
func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{tokenResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}}
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(mock).Login)

	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Email: "admin@sss.com", Password: "admin"}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(&mockAuthService{}).Login)

	w := serve(r, "POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidEmail(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(&mockAuthService{}).Login)

	w := serve(r, "POST", "/auth/login", jsonBody(map[string]string{"email": "not-an-email", "password": "x"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(&mockAuthService{err: service.ErrInvalidCredentials}).Login)

	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Email: "admin@sss.com", Password: "wrong"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	r := gin.New()
	r.POST("/auth/register", NewAuthHandler(&mockAuthService{err: service.ErrEmailExists}).Register)

	w := serve(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{Name: "Mike", Email: "a@b.com", Password: "secret12"}))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_PassesTokens(t *testing.T) {
	mock := &mockAuthService{}
	r := gin.New()
	r.POST("/auth/logout", withAuth(NewAuthHandler(mock).Logout))

	w := serve(r, "POST", "/auth/logout", jsonBody(dto.LogoutRequest{RefreshToken: "refresh-1"}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutJTI != "test-jti" || mock.logoutRefresh != "refresh-1" {
		t.Errorf("unexpected logout args: jti=%s refresh=%s", mock.logoutJTI, mock.logoutRefresh)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	r := gin.New()
	r.GET("/auth/me", NewAuthHandler(&mockAuthService{}).Me)

	w := serve(r, "GET", "/auth/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// EquipmentHandler Tests
// ═══════════════════════════════════════════════════════════

func equipmentRouter(mock *mockEquipmentService) *gin.Engine {
	h := NewEquipmentHandler(mock)
	r := gin.New()
	r.POST("/equipment", withAuth(h.CreateEquipment))
	r.GET("/equipment/item/*id", withAuth(h.GetEquipment))
	r.PUT("/equipment/item/*id", withAuth(h.UpdateEquipment))
	r.DELETE("/equipment/item/*id", withAuth(h.DeleteEquipment))
	r.GET("/equipment/history/*id", withAuth(h.History))
	return r
}

func TestEquipmentHandler_SlashInID(t *testing.T) {
	mock := &mockEquipmentService{}
	r := equipmentRouter(mock)

	w := serve(r, "GET", "/equipment/item/SIG/FNA/ALB/AP-1096", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.gotID != "SIG/FNA/ALB/AP-1096" {
		t.Errorf("expected full id with slashes, got %q", mock.gotID)
	}

	serve(r, "GET", "/equipment/history/SIG/FNA/ALB/AP-1096", nil)
	if mock.gotID != "SIG/FNA/ALB/AP-1096" {
		t.Errorf("history: expected full id, got %q", mock.gotID)
	}
}

func TestEquipmentHandler_Create_PassesActor(t *testing.T) {
	mock := &mockEquipmentService{}
	r := equipmentRouter(mock)

	w := serve(r, "POST", "/equipment", jsonBody(dto.EquipmentRequest{ID: "EQ-1", Category: "HPLC"}))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.gotActor.ID != "2" || mock.gotActor.Role != model.RoleSupporting {
		t.Errorf("unexpected actor: %+v", mock.gotActor)
	}
}

func TestEquipmentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		method     string
		wantStatus int
		wantCode   int
	}{
		{"no permission", service.ErrNoPermission, "DELETE", http.StatusForbidden, 10003},
		{"not found", service.ErrEquipmentNotFound, "DELETE", http.StatusNotFound, 30001},
		{"duplicate", service.ErrEquipmentExists, "PUT", http.StatusConflict, 30002},
		{"validation", apperrors.NewValidation("division", "unknown"), "PUT", http.StatusBadRequest, 10001},
		{"storage unavailable", &dataaccess.ApiError{Status: http.StatusServiceUnavailable, Message: "down"}, "PUT", http.StatusServiceUnavailable, 50300},
		{"unexpected", errors.New("boom"), "DELETE", http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := equipmentRouter(&mockEquipmentService{err: tt.err})
			var body io.Reader
			if tt.method == "PUT" {
				body = jsonBody(dto.EquipmentRequest{ID: "EQ-1"})
			}
			w := serve(r, tt.method, "/equipment/item/EQ-1", body)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func multipartFile(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestExportHandler_Export_XLSX(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx-bytes"), filename: "equipment_20250101.xlsx"}
	r := gin.New()
	r.GET("/equipment/export", NewExportHandler(mock, &mockEquipmentService{}).ExportEquipment)

	w := serve(r, "GET", "/equipment/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("unexpected content type %s", ct)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestExportHandler_Export_UnknownFormat(t *testing.T) {
	r := gin.New()
	r.GET("/equipment/export", NewExportHandler(&mockExportService{}, &mockEquipmentService{}).ExportEquipment)

	if w := serve(r, "GET", "/equipment/export?format=csv", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_Import_JSON(t *testing.T) {
	equipment := &mockEquipmentService{importResult: &dto.ImportResult{Total: 1, Written: 1}}
	r := gin.New()
	r.POST("/equipment/import", withAuth(NewExportHandler(&mockExportService{}, equipment).ImportEquipment))

	body, ct := multipartFile(t, "file", "backup.json", []byte(`[{"id":"EQ-1","category":"HPLC"}]`))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/equipment/import", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(equipment.imported) != 1 || equipment.imported[0].ID != "EQ-1" {
		t.Errorf("unexpected imported rows: %+v", equipment.imported)
	}
}

func TestExportHandler_Import_UnsupportedFile(t *testing.T) {
	r := gin.New()
	r.POST("/equipment/import", withAuth(NewExportHandler(&mockExportService{}, &mockEquipmentService{}).ImportEquipment))

	body, ct := multipartFile(t, "file", "data.csv", []byte("id,category"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/equipment/import", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_Import_PartialFailure(t *testing.T) {
	equipment := &mockEquipmentService{
		importResult: &dto.ImportResult{Total: 3, Written: 2},
		err:          errors.New("storage down"),
	}
	r := gin.New()
	r.POST("/equipment/import", withAuth(NewExportHandler(&mockExportService{}, equipment).ImportEquipment))

	body, ct := multipartFile(t, "file", "backup.json", []byte(`[{"id":"A"},{"id":"B"},{"id":"C"}]`))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/equipment/import", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 30104 || resp.Data == nil {
		t.Errorf("expected partial result in response, got %+v", resp)
	}
}

// ═══════════════════════════════════════════════════════════
// JobRequestHandler Tests
// ═══════════════════════════════════════════════════════════

func TestJobRequestHandler_ChangeStatus(t *testing.T) {
	mock := &mockJobRequestService{}
	r := gin.New()
	r.PATCH("/job-requests/:id/status", withAuth(NewJobRequestHandler(mock).ChangeStatus))

	w := serve(r, "PATCH", "/job-requests/7/status", jsonBody(dto.JobStatusRequest{Status: lifecycle.JobOnProgress}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.gotID != 7 || mock.gotStatus != lifecycle.JobOnProgress {
		t.Errorf("unexpected args: id=%d status=%s", mock.gotID, mock.gotStatus)
	}
}

func TestJobRequestHandler_ChangeStatus_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"bad id", "/job-requests/abc/status", nil, http.StatusBadRequest},
		{"invalid transition", "/job-requests/1/status", lifecycle.ErrInvalidTransition, http.StatusConflict},
		{"comment required", "/job-requests/1/status", lifecycle.ErrCompletionCommentRequired, http.StatusBadRequest},
		{"not found", "/job-requests/1/status", service.ErrJobRequestNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.PATCH("/job-requests/:id/status", withAuth(NewJobRequestHandler(&mockJobRequestService{err: tt.err}).ChangeStatus))

			w := serve(r, "PATCH", tt.path, jsonBody(dto.JobStatusRequest{Status: lifecycle.JobFinished}))
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
