package models

import "time"

// Camera is an IP camera whose feed is clipped for audits.
// CamPassword holds the encrypted credential and never leaves the API.
type Camera struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	BaseURL     string    `json:"base_url" db:"base_url"`
	CamUsername string    `json:"cam_username" db:"cam_username"`
	CamPassword string    `json:"-" db:"cam_password"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CameraCredentials are the decrypted credentials handed to the clip worker
type CameraCredentials struct {
	CameraID string `json:"camera_id"`
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Workstation is a packing desk bound to exactly one camera
type Workstation struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	CameraID   string    `json:"camera_id" db:"camera_id"`
	CameraName string    `json:"camera_name,omitempty" db:"camera_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
