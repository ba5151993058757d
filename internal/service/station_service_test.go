package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/secrets"
	"github.com/packing-audit/internal/storage"
)

type fakeCameraStore struct {
	mu      sync.Mutex
	cameras map[string]*models.Camera
	inUse   map[string]bool
}

func newFakeCameraStore() *fakeCameraStore {
	return &fakeCameraStore{cameras: map[string]*models.Camera{}, inUse: map[string]bool{}}
}

func (f *fakeCameraStore) Create(_ context.Context, cam *models.Camera) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cam.ID = uuid.NewString()
	cp := *cam
	f.cameras[cam.ID] = &cp
	return nil
}

func (f *fakeCameraStore) GetByID(_ context.Context, id string) (*models.Camera, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cam, ok := f.cameras[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *cam
	return &cp, nil
}

func (f *fakeCameraStore) ExistsByNameAndURL(_ context.Context, name, baseURL, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cam := range f.cameras {
		if cam.ID != excludeID && cam.Name == name && cam.BaseURL == baseURL {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCameraStore) Update(_ context.Context, cam *models.Camera) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cameras[cam.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *cam
	f.cameras[cam.ID] = &cp
	return nil
}

func (f *fakeCameraStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cameras[id]; !ok {
		return storage.ErrNotFound
	}
	if f.inUse[id] {
		return storage.ErrInUse
	}
	delete(f.cameras, id)
	return nil
}

func (f *fakeCameraStore) List(context.Context, storage.ListOptions) ([]*models.Camera, int, error) {
	return nil, 0, nil
}

type fakeWorkstationStore struct {
	mu    sync.Mutex
	items map[string]*models.Workstation
}

func (f *fakeWorkstationStore) Create(_ context.Context, ws *models.Workstation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws.ID = uuid.NewString()
	cp := *ws
	f.items[ws.ID] = &cp
	return nil
}

func (f *fakeWorkstationStore) GetByID(_ context.Context, id string) (*models.Workstation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (f *fakeWorkstationStore) ExistsByCamera(_ context.Context, cameraID, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ws := range f.items {
		if ws.ID != excludeID && ws.CameraID == cameraID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWorkstationStore) Update(_ context.Context, ws *models.Workstation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ws
	f.items[ws.ID] = &cp
	return nil
}

func (f *fakeWorkstationStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeWorkstationStore) List(context.Context, storage.ListOptions) ([]*models.Workstation, int, error) {
	return nil, 0, nil
}

func newCameraService(t *testing.T) (*CameraService, *fakeCameraStore) {
	t.Helper()
	cipher, err := secrets.NewCipher("camera-secret")
	require.NoError(t, err)
	store := newFakeCameraStore()
	return NewCameraService(store, cipher), store
}

func TestCameraService_CreateEncryptsPassword(t *testing.T) {
	svc, store := newCameraService(t)
	ctx := context.Background()

	cam, err := svc.Create(ctx, CameraInput{
		Name:        "Dock A",
		BaseURL:     "http://10.0.0.7/",
		CamUsername: "admin",
		CamPassword: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.7", cam.BaseURL)

	stored, err := store.GetByID(ctx, cam.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", stored.CamPassword)

	creds, err := svc.Credentials(ctx, cam.ID)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds.Password)
	assert.Equal(t, "admin", creds.Username)

	_, err = svc.Create(ctx, CameraInput{Name: "Dock A", BaseURL: "http://10.0.0.7", CamUsername: "x", CamPassword: "y"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyExists))
	assert.Equal(t, MsgCameraExists, apperrors.Categorize(err).Message)
}

func TestCameraService_Validation(t *testing.T) {
	svc, _ := newCameraService(t)

	_, err := svc.Create(context.Background(), CameraInput{Name: "c", BaseURL: "ftp://cam", CamUsername: "u", CamPassword: "p"})
	require.Error(t, err)
	cat := apperrors.Categorize(err)
	assert.Equal(t, apperrors.CodeValidation, cat.Code)
	assert.Contains(t, cat.Details, "base_url")

	_, err = svc.Create(context.Background(), CameraInput{Name: "c", BaseURL: "rtsp://10.0.0.9:554", CamUsername: "u"})
	assert.Contains(t, apperrors.Categorize(err).Details, "cam_password")
}

func TestCameraService_UpdateAndDelete(t *testing.T) {
	svc, store := newCameraService(t)
	ctx := context.Background()

	cam, err := svc.Create(ctx, CameraInput{Name: "c", BaseURL: "http://cam", CamUsername: "u", CamPassword: "p"})
	require.NoError(t, err)

	newPass := "rotated"
	_, err = svc.Update(ctx, cam.ID, UpdateCameraInput{CamPassword: &newPass})
	require.NoError(t, err)
	creds, err := svc.Credentials(ctx, cam.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", creds.Password)

	store.inUse[cam.ID] = true
	err = svc.Delete(ctx, cam.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	store.inUse[cam.ID] = false
	require.NoError(t, svc.Delete(ctx, cam.ID))
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(svc.Delete(ctx, cam.ID)))
}

func TestWorkstationService_CameraBinding(t *testing.T) {
	cameras := newFakeCameraStore()
	workstations := &fakeWorkstationStore{items: map[string]*models.Workstation{}}
	svc := NewWorkstationService(workstations, cameras)
	ctx := context.Background()

	cam := &models.Camera{Name: "c1", BaseURL: "http://c1"}
	require.NoError(t, cameras.Create(ctx, cam))
	other := &models.Camera{Name: "c2", BaseURL: "http://c2"}
	require.NoError(t, cameras.Create(ctx, other))

	ws, err := svc.Create(ctx, WorkstationInput{Name: "W1", CameraID: cam.ID})
	require.NoError(t, err)
	assert.Equal(t, cam.ID, ws.CameraID)

	_, err = svc.Create(ctx, WorkstationInput{Name: "W2", CameraID: cam.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyExists))

	_, err = svc.Create(ctx, WorkstationInput{Name: "W3", CameraID: uuid.NewString()})
	assert.Equal(t, MsgCameraNotFound, apperrors.Categorize(err).Message)

	// rebinding to the camera it already owns is allowed
	same := cam.ID
	_, err = svc.Update(ctx, ws.ID, UpdateWorkstationInput{CameraID: &same})
	require.NoError(t, err)

	moved, err := svc.Update(ctx, ws.ID, UpdateWorkstationInput{CameraID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, moved.CameraID)
}

type fakeClips map[string]*models.MiniClip

func (f fakeClips) GetByID(_ context.Context, id string) (*models.MiniClip, error) {
	clip, ok := f[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clip, nil
}

func (f fakeClips) List(context.Context, storage.ListOptions) ([]*models.MiniClip, int, error) {
	return nil, 0, nil
}

type fakeSigner struct{ path string }

func (f *fakeSigner) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	f.path = path
	return "https://storage.example.com/" + path + "?ttl=" + ttl.String(), nil
}

func TestClipService_SignedURL(t *testing.T) {
	clip := &models.MiniClip{ID: uuid.NewString(), StoragePath: "clips/a.mp4"}
	signer := &fakeSigner{}
	svc := NewClipService(fakeClips{clip.ID: clip}, signer, 0)

	signed, err := svc.SignedURL(context.Background(), clip.ID)
	require.NoError(t, err)
	assert.Equal(t, 3600, signed.ExpiresIn)
	assert.Equal(t, "clips/a.mp4", signer.path)

	_, err = svc.SignedURL(context.Background(), uuid.NewString())
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))

	unsigned := NewClipService(fakeClips{clip.ID: clip}, nil, time.Minute)
	_, err = unsigned.SignedURL(context.Background(), clip.ID)
	assert.Equal(t, 500, apperrors.GetHTTPStatusCode(err))

	page, err := svc.List(context.Background(), PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
}
