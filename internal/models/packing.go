package models

import (
	"time"

	"github.com/packing-audit/internal/types"
)

// PackingItem is one barcode scan lifecycle at a workstation
type PackingItem struct {
	ID              string              `json:"id" db:"id"`
	Barcode         string              `json:"barcode" db:"barcode"`
	OperatorID      string              `json:"operator_id" db:"operator_id"`
	OperatorName    string              `json:"operator_name,omitempty" db:"operator_name"`
	WorkstationID   string              `json:"workstation_id" db:"workstation_id"`
	WorkstationName string              `json:"workstation_name,omitempty" db:"workstation_name"`
	StartTime       time.Time           `json:"start_time" db:"start_time"`
	EndTime         *time.Time          `json:"end_time" db:"end_time"`
	Status          types.PackingStatus `json:"status" db:"status"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// MiniClip is the stored video excerpt produced for a packing item
type MiniClip struct {
	ID            string           `json:"id" db:"id"`
	PackingItemID string           `json:"packing_item_id" db:"packing_item_id"`
	Barcode       string           `json:"barcode,omitempty" db:"barcode"`
	CameraID      string           `json:"camera_id" db:"camera_id"`
	CameraName    string           `json:"camera_name,omitempty" db:"camera_name"`
	StoragePath   string           `json:"storage_path" db:"storage_path"`
	DurationSec   *int             `json:"duration_sec" db:"duration_sec"`
	FilesizeBytes *int64           `json:"filesize_bytes" db:"filesize_bytes"`
	GeneratedAt   time.Time        `json:"generated_at" db:"generated_at"`
	Status        types.ClipStatus `json:"status" db:"status"`
}
