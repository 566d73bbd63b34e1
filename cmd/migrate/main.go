package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/quizsmith/quizsmith-backend/internal/config"
)

func main() {
	dir := flag.String("path", "migrations", "directory holding migration files")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+*dir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open migrations: %v", err)
	}

	if err := run(m, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(m *migrate.Migrate, args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	switch args[0] {
	case "up":
		return report(m.Up(), "migrated up")
	case "down":
		return report(m.Down(), "migrated down")
	case "steps":
		if len(args) < 2 {
			return errors.New("steps needs a count, negative to roll back")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad step count %q", args[1])
		}
		return report(m.Steps(n), fmt.Sprintf("applied %d step(s)", n))
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return errors.New("force needs a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad version %q", args[1])
		}
		if err := m.Force(v); err != nil {
			return err
		}
		fmt.Printf("forced version to %d\n", v)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func report(err error, done string) error {
	switch {
	case err == nil:
		fmt.Println(done)
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Println("no change")
	default:
		return err
	}
	return nil
}

func usage() {
	fmt.Println("usage: migrate [-path dir] <up|down|steps <n>|version|force <version>>")
}
