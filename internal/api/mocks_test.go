package api

import (
	"context"
	"time"

	"github.com/packing-audit/internal/adapter"
	"github.com/packing-audit/internal/circuitbreaker"
	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

const (
	operatorToken = "operator-token"
	adminToken    = "admin-token"
	workerToken   = "worker-secret"

	operatorID = "11111111-1111-4111-8111-111111111111"
	adminID    = "22222222-2222-4222-8222-222222222222"
)

// Mock services for testing
type mockAuthService struct {
	loginFunc   func(ctx context.Context, email, password string) (*service.LoginResult, error)
	refreshFunc func(ctx context.Context, accessToken, refreshToken string) (*service.RefreshResult, error)
	logouts     []string
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return nil, apperrors.NewUnauthorizedError(service.MsgLoginFailed)
}

func (m *mockAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*service.RefreshResult, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, accessToken, refreshToken)
	}
	return nil, apperrors.NewSessionExpiredError(service.MsgSessionExpired)
}

func (m *mockAuthService) Logout(_ context.Context, email string) error {
	m.logouts = append(m.logouts, email)
	return nil
}

func (m *mockAuthService) Authenticate(_ context.Context, token string) (*service.Principal, error) {
	switch token {
	case operatorToken:
		return &service.Principal{UserID: operatorID, Role: types.RoleOperator}, nil
	case adminToken:
		return &service.Principal{UserID: adminID, Role: types.RoleSuperadmin}, nil
	case "":
		return nil, apperrors.NewUnauthorizedError(service.MsgNoAccessToken)
	default:
		return nil, apperrors.NewInvalidTokenError(service.MsgInvalidToken)
	}
}

type mockPackingService struct {
	scanStartFunc func(ctx context.Context, in service.ScanInput) (*models.PackingItem, error)
	scanFunc      func(ctx context.Context, in service.ScanInput) (*models.PackingItem, bool, error)
	listFunc      func(ctx context.Context, filter storage.PackingFilter, page service.PageRequest) (*service.Page[*models.PackingItem], error)
	reprocessFunc func(ctx context.Context, id string) (*models.PackingItem, error)
	outcomeFunc   func(ctx context.Context, id string, result service.ItemOutcome) (*models.PackingItem, error)
}

func (m *mockPackingService) ScanStart(ctx context.Context, in service.ScanInput) (*models.PackingItem, error) {
	if m.scanStartFunc != nil {
		return m.scanStartFunc(ctx, in)
	}
	return &models.PackingItem{ID: "p-1", Barcode: in.Barcode, OperatorID: in.OperatorID, Status: types.PackingStatusPending}, nil
}

func (m *mockPackingService) ScanEnd(_ context.Context, in service.ScanInput) (*models.PackingItem, error) {
	return &models.PackingItem{ID: "p-1", Barcode: in.Barcode, Status: types.PackingStatusReadyForBatch}, nil
}

func (m *mockPackingService) Scan(ctx context.Context, in service.ScanInput) (*models.PackingItem, bool, error) {
	if m.scanFunc != nil {
		return m.scanFunc(ctx, in)
	}
	return &models.PackingItem{ID: "p-1", Barcode: in.Barcode}, true, nil
}

func (m *mockPackingService) Reprocess(ctx context.Context, id string) (*models.PackingItem, error) {
	if m.reprocessFunc != nil {
		return m.reprocessFunc(ctx, id)
	}
	return &models.PackingItem{ID: id, Status: types.PackingStatusReadyForBatch}, nil
}

func (m *mockPackingService) GetByID(_ context.Context, id string) (*models.PackingItem, error) {
	return nil, apperrors.NewNotFoundError(service.MsgPackingNotFound)
}

func (m *mockPackingService) List(ctx context.Context, filter storage.PackingFilter, page service.PageRequest) (*service.Page[*models.PackingItem], error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter, page)
	}
	return service.NewPage[*models.PackingItem](nil, page, 0), nil
}

func (m *mockPackingService) RecordOutcome(ctx context.Context, id string, result service.ItemOutcome) (*models.PackingItem, error) {
	if m.outcomeFunc != nil {
		return m.outcomeFunc(ctx, id, result)
	}
	return &models.PackingItem{ID: id, Status: types.PackingStatusClipGenerated}, nil
}

type mockBatchService struct {
	triggerFunc func(ctx context.Context) (*models.BatchJob, error)
	processFunc func(ctx context.Context, id string) (*adapter.TriggerResult, error)
	listFunc    func(ctx context.Context, filter storage.BatchJobFilter, page service.PageRequest) (*service.Page[*models.BatchJob], error)
	resultFunc  func(ctx context.Context, itemID string, outcome service.ItemOutcome) (*models.BatchJob, error)
}

func (m *mockBatchService) Trigger(ctx context.Context) (*models.BatchJob, error) {
	if m.triggerFunc != nil {
		return m.triggerFunc(ctx)
	}
	return &models.BatchJob{ID: "job-1", Status: types.BatchJobStatusRunning, TotalItems: 3}, nil
}

func (m *mockBatchService) ProcessItem(ctx context.Context, id string) (*adapter.TriggerResult, error) {
	if m.processFunc != nil {
		return m.processFunc(ctx, id)
	}
	return &adapter.TriggerResult{Status: "accepted", PackingItemID: id}, nil
}

func (m *mockBatchService) GetByID(_ context.Context, id string) (*models.BatchJobDetail, error) {
	return &models.BatchJobDetail{BatchJob: models.BatchJob{ID: id}, Items: []*models.BatchJobItem{}}, nil
}

func (m *mockBatchService) List(ctx context.Context, filter storage.BatchJobFilter, page service.PageRequest) (*service.Page[*models.BatchJob], error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter, page)
	}
	return service.NewPage[*models.BatchJob](nil, page, 0), nil
}

func (m *mockBatchService) ReportItemStart(_ context.Context, itemID string) (*models.BatchJobItem, error) {
	return &models.BatchJobItem{ID: itemID, Status: types.BatchItemStatusProcessing}, nil
}

func (m *mockBatchService) ReportItemResult(ctx context.Context, itemID string, outcome service.ItemOutcome) (*models.BatchJob, error) {
	if m.resultFunc != nil {
		return m.resultFunc(ctx, itemID, outcome)
	}
	return &models.BatchJob{ID: "job-1", Status: types.BatchJobStatusRunning}, nil
}

type mockUserService struct {
	createFunc func(ctx context.Context, in service.CreateUserInput) (*models.User, error)
}

func (m *mockUserService) List(_ context.Context, page service.PageRequest) (*service.Page[*models.User], error) {
	return service.NewPage([]*models.User{{ID: adminID, Name: "admin"}}, page, 1), nil
}

func (m *mockUserService) GetByID(_ context.Context, id string) (*models.User, error) {
	switch id {
	case operatorID:
		return &models.User{ID: id, Name: "op", Email: "op@example.com"}, nil
	case adminID:
		return &models.User{ID: id, Name: "admin", Email: "admin@example.com"}, nil
	}
	return nil, apperrors.NewNotFoundError(service.MsgUserNotFound)
}

func (m *mockUserService) Create(ctx context.Context, in service.CreateUserInput) (*models.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return &models.User{ID: "new", Name: in.Name, Email: in.Email, Password: "hashed"}, nil
}

func (m *mockUserService) Update(_ context.Context, id string, _ service.UpdateUserInput) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (m *mockUserService) Delete(context.Context, string) error { return nil }

type mockRoleService struct{}

func (mockRoleService) List(context.Context) ([]*models.Role, error) {
	return []*models.Role{{ID: "r1", Name: types.RoleOperator}}, nil
}

func (mockRoleService) GetByID(_ context.Context, id string) (*models.Role, error) {
	return &models.Role{ID: id, Name: types.RoleOperator}, nil
}

type mockCameraService struct{}

func (mockCameraService) List(_ context.Context, page service.PageRequest) (*service.Page[*models.Camera], error) {
	return service.NewPage[*models.Camera](nil, page, 0), nil
}

func (mockCameraService) GetByID(_ context.Context, id string) (*models.Camera, error) {
	return &models.Camera{ID: id, Name: "cam", CamPassword: "sealed"}, nil
}

func (mockCameraService) Create(_ context.Context, in service.CameraInput) (*models.Camera, error) {
	return &models.Camera{ID: "cam-1", Name: in.Name, CamPassword: "sealed"}, nil
}

func (mockCameraService) Update(_ context.Context, id string, _ service.UpdateCameraInput) (*models.Camera, error) {
	return &models.Camera{ID: id}, nil
}

func (mockCameraService) Delete(context.Context, string) error { return nil }

func (mockCameraService) Credentials(_ context.Context, id string) (*models.CameraCredentials, error) {
	return &models.CameraCredentials{CameraID: id, Username: "admin", Password: "hunter2"}, nil
}

type mockWorkstationService struct{}

func (mockWorkstationService) List(_ context.Context, page service.PageRequest) (*service.Page[*models.Workstation], error) {
	return service.NewPage[*models.Workstation](nil, page, 0), nil
}

func (mockWorkstationService) GetByID(_ context.Context, id string) (*models.Workstation, error) {
	return &models.Workstation{ID: id}, nil
}

func (mockWorkstationService) Create(_ context.Context, in service.WorkstationInput) (*models.Workstation, error) {
	return &models.Workstation{ID: "ws-1", Name: in.Name, CameraID: in.CameraID}, nil
}

func (mockWorkstationService) Update(_ context.Context, id string, _ service.UpdateWorkstationInput) (*models.Workstation, error) {
	return &models.Workstation{ID: id}, nil
}

func (mockWorkstationService) Delete(context.Context, string) error { return nil }

type mockClipService struct{}

func (mockClipService) List(_ context.Context, page service.PageRequest) (*service.Page[*models.MiniClip], error) {
	return service.NewPage[*models.MiniClip](nil, page, 0), nil
}

func (mockClipService) GetByID(_ context.Context, id string) (*models.MiniClip, error) {
	return &models.MiniClip{ID: id}, nil
}

func (mockClipService) SignedURL(_ context.Context, id string) (*service.SignedURL, error) {
	return &service.SignedURL{URL: "https://storage.example.com/" + id, ExpiresIn: 3600}, nil
}

type mockDatabase struct{ err error }

func (m mockDatabase) Ping(context.Context) error { return m.err }

type mockBreaker struct{}

func (mockBreaker) BreakerStats() *circuitbreaker.Stats {
	return &circuitbreaker.Stats{Name: "clip-worker", State: circuitbreaker.StateClosed}
}

type testDeps struct {
	auth    *mockAuthService
	packing *mockPackingService
	batch   *mockBatchService
	users   *mockUserService
	db      *mockDatabase
}

func createTestServer() (*Server, *testDeps) {
	return createTestServerWith(nil)
}

// createTestServerWith lets a test adjust the config before the router is built
func createTestServerWith(configure func(*ServerConfig)) (*Server, *testDeps) {
	deps := &testDeps{
		auth:    &mockAuthService{},
		packing: &mockPackingService{},
		batch:   &mockBatchService{},
		users:   &mockUserService{},
		db:      &mockDatabase{},
	}
	config := &ServerConfig{
		Host:         "localhost",
		Port:         "8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		CORSOrigins:  []string{"http://localhost:5173"},
		AuthRPS:      1000,
		AuthBurst:    1000,
		WorkerToken:  workerToken,
	}
	if configure != nil {
		configure(config)
	}
	server := NewServer(config, Services{
		Auth:         deps.auth,
		Packing:      deps.packing,
		Batch:        deps.batch,
		Users:        deps.users,
		Roles:        mockRoleService{},
		Cameras:      mockCameraService{},
		Workstations: mockWorkstationService{},
		Clips:        mockClipService{},
		Database:     deps.db,
		Breaker:      mockBreaker{},
	}, logging.NewNopLogger())
	return server, deps
}
