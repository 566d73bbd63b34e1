package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/database"
	"github.com/quizsmith/quizsmith-backend/internal/logger"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

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

	authors := repository.NewAuthorRepository(pool)

	fmt.Println("Reset an author password")
	in := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, err := in.ReadString('\n')
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	author, err := authors.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no author found with email %s", email)
	}

	password, err := readPassword("New password")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm new password")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := authors.UpdatePassword(ctx, author.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	fmt.Printf("Password reset for %q (%s)\n", author.Name, author.Email)
	return nil
}

func readPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(raw) < 6 {
		return "", errors.New("password must be at least 6 characters")
	}
	return string(raw), nil
}
