// Package main seeds the roles and the first superadmin account.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/packing-audit/internal/auth"
	"github.com/packing-audit/internal/config"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	name := os.Getenv("SEED_ADMIN_NAME")
	email := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL")))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if name == "" {
		name = "superadmin"
	}

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	roles := storage.NewRoleRepository(postgres)
	admin, err := roles.Ensure(ctx, types.RoleSuperadmin, "Full administrative access")
	if err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}
	if _, err := roles.Ensure(ctx, types.RoleOperator, "Scans packing items at a workstation"); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}
	log.Println("Roles seeded")

	if email == "" || password == "" {
		log.Println("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set, skipping superadmin")
		return
	}

	users := storage.NewUserRepository(postgres)
	if _, err := users.GetByEmail(ctx, email); err == nil {
		log.Printf("User %s already exists", email)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Fatalf("Failed to look up %s: %v", email, err)
	}

	hash, err := auth.NewHasher(cfg.Auth.BcryptCost).Hash(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{Name: name, Email: email, Password: hash, RoleID: admin.ID}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create superadmin: %v", err)
	}
	fmt.Printf("Created superadmin %s (%s)\n", user.Email, user.ID)
}
