package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/packing-audit/internal/config"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/types"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testPostgresConfig() *config.PostgresConfig {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return &config.PostgresConfig{
		Host:           get("TEST_POSTGRES_HOST", "localhost"),
		Port:           get("TEST_POSTGRES_PORT", "5432"),
		Database:       get("TEST_POSTGRES_DB", "cctv_test"),
		User:           get("TEST_POSTGRES_USER", "cctv"),
		Password:       get("TEST_POSTGRES_PASSWORD", "cctv_dev_password"),
		SSLMode:        "disable",
		MaxConnections: 10,
	}
}

// setupTestDB connects to the test database, migrates it and empties every
// table. The test is skipped when Postgres is unavailable.
func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testPostgresConfig()
	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if err := RunMigrations(cfg.URL(), "../../migrations/postgres"); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	_, err = db.Pool().Exec(testContext(t), `
		TRUNCATE batch_job_items, batch_jobs, mini_clips, packing_items,
		         workstations, cameras, sessions, users, roles CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
	return db
}

// fixture holds a role, operator, camera and workstation for packing tests
type fixture struct {
	role        *models.Role
	operator    *models.User
	camera      *models.Camera
	workstation *models.Workstation
}

func seedFixture(t *testing.T, db *PostgresDB) *fixture {
	t.Helper()
	ctx := testContext(t)

	role, err := NewRoleRepository(db).Ensure(ctx, types.RoleOperator, "Packing operator")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	operator := &models.User{Name: "op", Email: "op@example.com", Password: "hash", RoleID: role.ID}
	if err := NewUserRepository(db).Create(ctx, operator); err != nil {
		t.Fatalf("create user error = %v", err)
	}

	camera := &models.Camera{Name: "cam-1", BaseURL: "http://10.0.0.5", CamUsername: "admin", CamPassword: "enc"}
	if err := NewCameraRepository(db).Create(ctx, camera); err != nil {
		t.Fatalf("create camera error = %v", err)
	}

	ws := &models.Workstation{Name: "W1", CameraID: camera.ID}
	if err := NewWorkstationRepository(db).Create(ctx, ws); err != nil {
		t.Fatalf("create workstation error = %v", err)
	}

	return &fixture{role: role, operator: operator, camera: camera, workstation: ws}
}
