package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
)

// CameraStore persists cameras
type CameraStore interface {
	Create(ctx context.Context, cam *models.Camera) error
	GetByID(ctx context.Context, id string) (*models.Camera, error)
	ExistsByNameAndURL(ctx context.Context, name, baseURL, excludeID string) (bool, error)
	Update(ctx context.Context, cam *models.Camera) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts storage.ListOptions) ([]*models.Camera, int, error)
}

// WorkstationStore persists workstations
type WorkstationStore interface {
	Create(ctx context.Context, ws *models.Workstation) error
	GetByID(ctx context.Context, id string) (*models.Workstation, error)
	ExistsByCamera(ctx context.Context, cameraID, excludeID string) (bool, error)
	Update(ctx context.Context, ws *models.Workstation) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts storage.ListOptions) ([]*models.Workstation, int, error)
}

// CredentialCipher seals camera passwords at rest
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(value string) (string, error)
}

// CameraInput is the payload for creating a camera
type CameraInput struct {
	Name        string `json:"name"`
	BaseURL     string `json:"base_url"`
	CamUsername string `json:"cam_username"`
	CamPassword string `json:"cam_password"`
}

// UpdateCameraInput is a partial camera update
type UpdateCameraInput struct {
	Name        *string `json:"name"`
	BaseURL     *string `json:"base_url"`
	CamUsername *string `json:"cam_username"`
	CamPassword *string `json:"cam_password"`
}

func validateBaseURL(v fieldErrors, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "rtsp") || u.Host == "" {
		v["base_url"] = "must be an http, https or rtsp url"
	}
}

// CameraService manages cameras and their encrypted credentials
type CameraService struct {
	cameras CameraStore
	cipher  CredentialCipher
}

// NewCameraService creates a camera service
func NewCameraService(cameras CameraStore, cipher CredentialCipher) *CameraService {
	return &CameraService{cameras: cameras, cipher: cipher}
}

// List returns a page of cameras
func (s *CameraService) List(ctx context.Context, page PageRequest) (*Page[*models.Camera], error) {
	cams, total, err := s.cameras.List(ctx, page.ListOptions())
	if err != nil {
		return nil, apperrors.NewDatabaseError("list cameras", err)
	}
	return NewPage(cams, page, total), nil
}

// GetByID returns one camera
func (s *CameraService) GetByID(ctx context.Context, id string) (*models.Camera, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgCameraNotFound)
	}
	cam, err := s.cameras.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgCameraNotFound)
		}
		return nil, apperrors.NewDatabaseError("get camera", err)
	}
	return cam, nil
}

// Create registers a camera, encrypting its password
func (s *CameraService) Create(ctx context.Context, in CameraInput) (*models.Camera, error) {
	cam := &models.Camera{
		Name:        strings.TrimSpace(in.Name),
		BaseURL:     strings.TrimRight(strings.TrimSpace(in.BaseURL), "/"),
		CamUsername: strings.TrimSpace(in.CamUsername),
	}

	v := fieldErrors{}
	v.require("name", cam.Name)
	validateBaseURL(v, cam.BaseURL)
	v.require("cam_username", cam.CamUsername)
	v.require("cam_password", in.CamPassword)
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, cam.Name, cam.BaseURL, ""); err != nil {
		return nil, err
	}

	sealed, err := s.cipher.Encrypt(in.CamPassword)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}
	cam.CamPassword = sealed

	if err := s.cameras.Create(ctx, cam); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgCameraExists)
		}
		return nil, apperrors.NewDatabaseError("create camera", err)
	}

	logging.FromContext(ctx).WithField("cameraId", cam.ID).Info("Camera created")
	return cam, nil
}

// Update applies the fields present in in
func (s *CameraService) Update(ctx context.Context, id string, in UpdateCameraInput) (*models.Camera, error) {
	cam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := fieldErrors{}
	if in.Name != nil {
		cam.Name = strings.TrimSpace(*in.Name)
		v.require("name", cam.Name)
	}
	if in.BaseURL != nil {
		cam.BaseURL = strings.TrimRight(strings.TrimSpace(*in.BaseURL), "/")
		validateBaseURL(v, cam.BaseURL)
	}
	if in.CamUsername != nil {
		cam.CamUsername = strings.TrimSpace(*in.CamUsername)
		v.require("cam_username", cam.CamUsername)
	}
	if in.CamPassword != nil {
		v.require("cam_password", *in.CamPassword)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if in.Name != nil || in.BaseURL != nil {
		if err := s.checkUnique(ctx, cam.Name, cam.BaseURL, cam.ID); err != nil {
			return nil, err
		}
	}
	if in.CamPassword != nil {
		sealed, err := s.cipher.Encrypt(*in.CamPassword)
		if err != nil {
			return nil, apperrors.NewInternalError(MsgInternalServerError, err)
		}
		cam.CamPassword = sealed
	}

	if err := s.cameras.Update(ctx, cam); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperrors.NewNotFoundError(MsgCameraNotFound)
		case errors.Is(err, storage.ErrDuplicate):
			return nil, apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgCameraExists)
		default:
			return nil, apperrors.NewDatabaseError("update camera", err)
		}
	}
	return cam, nil
}

// Delete removes a camera not bound to a workstation
func (s *CameraService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return apperrors.NewNotFoundError(MsgCameraNotFound)
	}
	if err := s.cameras.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return apperrors.NewNotFoundError(MsgCameraNotFound)
		case errors.Is(err, storage.ErrInUse):
			return apperrors.NewConflictError(apperrors.CodeInvalidState, "Camera is still in use")
		default:
			return apperrors.NewDatabaseError("delete camera", err)
		}
	}
	logging.FromContext(ctx).WithField("cameraId", id).Info("Camera deleted")
	return nil
}

// Credentials returns the decrypted credentials of a camera
func (s *CameraService) Credentials(ctx context.Context, id string) (*models.CameraCredentials, error) {
	cam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	password, err := s.cipher.Decrypt(cam.CamPassword)
	if err != nil {
		logging.FromContext(ctx).WithField("cameraId", id).WithError(err).Error("Failed to decrypt camera credentials")
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}
	return &models.CameraCredentials{
		CameraID: cam.ID,
		BaseURL:  cam.BaseURL,
		Username: cam.CamUsername,
		Password: password,
	}, nil
}

func (s *CameraService) checkUnique(ctx context.Context, name, baseURL, excludeID string) error {
	exists, err := s.cameras.ExistsByNameAndURL(ctx, name, baseURL, excludeID)
	if err != nil {
		return apperrors.NewDatabaseError("check camera", err)
	}
	if exists {
		return apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgCameraExists)
	}
	return nil
}

// WorkstationInput is the payload for creating a workstation
type WorkstationInput struct {
	Name     string `json:"name"`
	CameraID string `json:"camera_id"`
}

// UpdateWorkstationInput is a partial workstation update
type UpdateWorkstationInput struct {
	Name     *string `json:"name"`
	CameraID *string `json:"camera_id"`
}

// WorkstationService manages workstations, each bound to one camera
type WorkstationService struct {
	workstations WorkstationStore
	cameras      CameraStore
}

// NewWorkstationService creates a workstation service
func NewWorkstationService(workstations WorkstationStore, cameras CameraStore) *WorkstationService {
	return &WorkstationService{workstations: workstations, cameras: cameras}
}

// List returns a page of workstations
func (s *WorkstationService) List(ctx context.Context, page PageRequest) (*Page[*models.Workstation], error) {
	items, total, err := s.workstations.List(ctx, page.ListOptions())
	if err != nil {
		return nil, apperrors.NewDatabaseError("list workstations", err)
	}
	return NewPage(items, page, total), nil
}

// GetByID returns one workstation
func (s *WorkstationService) GetByID(ctx context.Context, id string) (*models.Workstation, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgWorkstationNotFound)
	}
	ws, err := s.workstations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgWorkstationNotFound)
		}
		return nil, apperrors.NewDatabaseError("get workstation", err)
	}
	return ws, nil
}

// Create registers a workstation on a free camera
func (s *WorkstationService) Create(ctx context.Context, in WorkstationInput) (*models.Workstation, error) {
	ws := &models.Workstation{Name: strings.TrimSpace(in.Name), CameraID: strings.TrimSpace(in.CameraID)}

	v := fieldErrors{}
	v.require("name", ws.Name)
	v.id("camera_id", ws.CameraID)
	if err := v.err(); err != nil {
		return nil, err
	}
	if err := s.checkCamera(ctx, ws.CameraID, ""); err != nil {
		return nil, err
	}

	if err := s.workstations.Create(ctx, ws); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgWorkstationExists)
		}
		return nil, apperrors.NewDatabaseError("create workstation", err)
	}

	logging.FromContext(ctx).WithField("workstationId", ws.ID).Info("Workstation created")
	return s.GetByID(ctx, ws.ID)
}

// Update applies the fields present in in
func (s *WorkstationService) Update(ctx context.Context, id string, in UpdateWorkstationInput) (*models.Workstation, error) {
	ws, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := fieldErrors{}
	if in.Name != nil {
		ws.Name = strings.TrimSpace(*in.Name)
		v.require("name", ws.Name)
	}
	if in.CameraID != nil {
		ws.CameraID = strings.TrimSpace(*in.CameraID)
		v.id("camera_id", ws.CameraID)
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	if in.CameraID != nil {
		if err := s.checkCamera(ctx, ws.CameraID, ws.ID); err != nil {
			return nil, err
		}
	}

	if err := s.workstations.Update(ctx, ws); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperrors.NewNotFoundError(MsgWorkstationNotFound)
		case errors.Is(err, storage.ErrDuplicate):
			return nil, apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgWorkstationExists)
		default:
			return nil, apperrors.NewDatabaseError("update workstation", err)
		}
	}
	return s.GetByID(ctx, ws.ID)
}

// Delete removes a workstation without packing history
func (s *WorkstationService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return apperrors.NewNotFoundError(MsgWorkstationNotFound)
	}
	if err := s.workstations.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return apperrors.NewNotFoundError(MsgWorkstationNotFound)
		case errors.Is(err, storage.ErrInUse):
			return apperrors.NewConflictError(apperrors.CodeInvalidState, "Workstation has recorded packing items")
		default:
			return apperrors.NewDatabaseError("delete workstation", err)
		}
	}
	logging.FromContext(ctx).WithField("workstationId", id).Info("Workstation deleted")
	return nil
}

func (s *WorkstationService) checkCamera(ctx context.Context, cameraID, excludeID string) error {
	if _, err := s.cameras.GetByID(ctx, cameraID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFoundError(MsgCameraNotFound)
		}
		return apperrors.NewDatabaseError("get camera", err)
	}
	bound, err := s.workstations.ExistsByCamera(ctx, cameraID, excludeID)
	if err != nil {
		return apperrors.NewDatabaseError("check workstation camera", err)
	}
	if bound {
		return apperrors.NewConflictError(apperrors.CodeAlreadyExists, MsgWorkstationExists)
	}
	return nil
}
