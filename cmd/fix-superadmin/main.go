package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/database"
	"github.com/quizsmith/quizsmith-backend/internal/logger"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
)

// Regrants the full permission catalog to role 1. Run after an upgrade
// that ships new permission codes; the migration seeds them into the
// catalog but existing role grants do not pick them up on their own.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	roles := repository.NewRoleRepository(pool)

	codes := make([]string, 0, len(model.AllPermissions))
	for _, p := range model.AllPermissions {
		codes = append(codes, string(p))
	}
	fmt.Printf("Granting %d permission codes to Superadmin (role 1)\n", len(codes))

	if err := roles.DeleteAllPermissionsFromRole(ctx, 1); err != nil {
		return fmt.Errorf("clear role grants: %w", err)
	}
	if err := roles.AssignPermissionsToRole(ctx, 1, codes); err != nil {
		return fmt.Errorf("assign permissions: %w", err)
	}

	fmt.Println("Superadmin now holds the full catalog.")
	return nil
}
