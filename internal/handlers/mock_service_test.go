package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"home_dispatch/internal/hub"
	"home_dispatch/internal/models"
	"home_dispatch/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockInstructions struct {
	rec        models.ExecutionRecord
	err        error
	preview    service.Preview
	lastText   string
	lastSource models.Source
	lastAction service.ActionRequest
}

func (m *mockInstructions) Submit(ctx context.Context, text string, source models.Source) (models.ExecutionRecord, error) {
	m.lastText = text
	m.lastSource = source
	return m.rec, m.err
}
func (m *mockInstructions) ExecuteAction(ctx context.Context, req service.ActionRequest) (models.ExecutionRecord, error) {
	m.lastAction = req
	return m.rec, m.err
}
func (m *mockInstructions) Preview(ctx context.Context, text string) (service.Preview, error) {
	m.lastText = text
	return m.preview, m.err
}

type mockCatalog struct {
	devices   []models.Device
	device    models.Device
	err       error
	reloadN   int
	icons     []string
	iconPath  string
	lastID    string
	lastInput models.Device
}

func (m *mockCatalog) ListDevices(ctx context.Context) []models.Device { return m.devices }
func (m *mockCatalog) GetDevice(ctx context.Context, id string) (models.Device, error) {
	m.lastID = id
	return m.device, m.err
}
func (m *mockCatalog) CreateDevice(ctx context.Context, d models.Device) (models.Device, error) {
	m.lastInput = d
	return d, m.err
}
func (m *mockCatalog) UpdateDevice(ctx context.Context, id string, d models.Device) (models.Device, error) {
	m.lastID = id
	m.lastInput = d
	return d, m.err
}
func (m *mockCatalog) DeleteDevice(ctx context.Context, id string) error {
	m.lastID = id
	return m.err
}
func (m *mockCatalog) Reload(ctx context.Context) (int, error) { return m.reloadN, m.err }
func (m *mockCatalog) ListIcons(ctx context.Context) ([]string, error) {
	return m.icons, m.err
}
func (m *mockCatalog) IconPath(name string) (string, error) { return m.iconPath, m.err }

type mockSchedules struct {
	jobs      []service.JobView
	job       service.JobView
	err       error
	lastID    string
	lastInput service.JobInput
}

func (m *mockSchedules) ListJobs(ctx context.Context) ([]service.JobView, error) {
	return m.jobs, m.err
}
func (m *mockSchedules) GetJob(ctx context.Context, id string) (service.JobView, error) {
	m.lastID = id
	return m.job, m.err
}
func (m *mockSchedules) CreateJob(ctx context.Context, in service.JobInput) (service.JobView, error) {
	m.lastInput = in
	return m.job, m.err
}
func (m *mockSchedules) UpdateJob(ctx context.Context, id string, in service.JobInput) (service.JobView, error) {
	m.lastID = id
	m.lastInput = in
	return m.job, m.err
}
func (m *mockSchedules) DeleteJob(ctx context.Context, id string) error {
	m.lastID = id
	return m.err
}

type mockScheduler struct {
	status []service.JobStatus
}

func (m *mockScheduler) Run(ctx context.Context, tick time.Duration) {}
func (m *mockScheduler) Reload(ctx context.Context) error             { return nil }
func (m *mockScheduler) Status() []service.JobStatus                  { return m.status }

type mockExecutionLog struct {
	hub        *hub.Hub
	resp       []models.ExecutionRecord
	err        error
	lastFilter service.LogFilter
}

func (m *mockExecutionLog) Append(ctx context.Context, rec models.ExecutionRecord) error {
	m.hub.PublishRecord(rec)
	return m.err
}
func (m *mockExecutionLog) List(ctx context.Context, f service.LogFilter) ([]models.ExecutionRecord, error) {
	m.lastFilter = f
	return m.resp, m.err
}
func (m *mockExecutionLog) Subscribe(buffer int) *hub.Subscription {
	return m.hub.Subscribe(buffer)
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// doJSON performs a request carrying a valid bearer token.
func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
