package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/database"
	"github.com/quizsmith/quizsmith-backend/internal/logger"
	"github.com/quizsmith/quizsmith-backend/internal/model"
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

	fmt.Println("Create a new author account")
	in := bufio.NewReader(os.Stdin)

	name, err := promptLine(in, "Name")
	if err != nil {
		return err
	}
	email, err := promptLine(in, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password")
	if err != nil {
		return err
	}

	roleID := 2
	rawRole, err := promptOptional(in, "Role ID (default 2, Author)")
	if err != nil {
		return err
	}
	if rawRole != "" {
		roleID, err = strconv.Atoi(rawRole)
		if err != nil {
			return errors.New("role ID must be a number")
		}
	}

	taken, err := authors.EmailExists(ctx, email, 0)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return fmt.Errorf("email %s is already registered", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	author := &model.Author{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		RoleID:       roleID,
	}
	if err := authors.Create(ctx, author); err != nil {
		return fmt.Errorf("create author: %w", err)
	}

	fmt.Printf("Created author %q (%s) with ID %d\n", author.Name, author.Email, author.ID)
	return nil
}

// promptLine reads one trimmed line and rejects empty input.
func promptLine(in *bufio.Reader, label string) (string, error) {
	line, err := promptOptional(in, label)
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

func promptOptional(in *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo and enforces the minimum length.
func promptPassword(label string) (string, error) {
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
