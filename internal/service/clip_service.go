package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
)

// ClipStore reads stored clips
type ClipStore interface {
	GetByID(ctx context.Context, id string) (*models.MiniClip, error)
	List(ctx context.Context, opts storage.ListOptions) ([]*models.MiniClip, int, error)
}

// URLSigner issues time-limited download URLs
type URLSigner interface {
	SignedURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error)
}

// SignedURL is a download link for clip media
type SignedURL struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// ClipService exposes generated clips
type ClipService struct {
	clips  ClipStore
	signer URLSigner
	ttl    time.Duration
}

// NewClipService creates a clip service. signer may be nil when no object
// store is configured.
func NewClipService(clips ClipStore, signer URLSigner, ttl time.Duration) *ClipService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ClipService{clips: clips, signer: signer, ttl: ttl}
}

// List returns a page of clips
func (s *ClipService) List(ctx context.Context, page PageRequest) (*Page[*models.MiniClip], error) {
	clips, total, err := s.clips.List(ctx, page.ListOptions())
	if err != nil {
		return nil, apperrors.NewDatabaseError("list clips", err)
	}
	return NewPage(clips, page, total), nil
}

// GetByID returns one clip
func (s *ClipService) GetByID(ctx context.Context, id string) (*models.MiniClip, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgClipNotFound)
	}
	clip, err := s.clips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgClipNotFound)
		}
		return nil, apperrors.NewDatabaseError("get clip", err)
	}
	return clip, nil
}

// SignedURL returns a time-limited download URL for a clip
func (s *ClipService) SignedURL(ctx context.Context, id string) (*SignedURL, error) {
	clip, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, apperrors.NewInternalError("Clip storage is not configured", nil)
	}

	u, err := s.signer.SignedURL(ctx, clip.StoragePath, s.ttl)
	if err != nil {
		return nil, apperrors.NewInternalError(MsgInternalServerError, err)
	}
	return &SignedURL{URL: u, ExpiresIn: int(s.ttl.Seconds())}, nil
}
