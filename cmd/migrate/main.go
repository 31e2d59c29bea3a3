package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/config"
	"github.com/tripdesk/agency-api/internal/database"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate [up|down|status|version|create|create-superuser]")
	}

	command := args[0]
	arguments := args[1:]

	if command == "create-superuser" {
		return createSuperUser(cfg, arguments)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	migrationsDir := "./migrations"

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	switch command {
	case "up":
		if err := goose.Up(db, migrationsDir); err != nil {
			return fmt.Errorf("failed to run up migrations: %w", err)
		}
		fmt.Println("Migrations applied successfully")

	case "down":
		if err := goose.Down(db, migrationsDir); err != nil {
			return fmt.Errorf("failed to run down migration: %w", err)
		}
		fmt.Println("Migration rolled back successfully")

	case "status":
		if err := goose.Status(db, migrationsDir); err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

	case "version":
		if err := goose.Version(db, migrationsDir); err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}

	case "create":
		if len(arguments) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		if err := goose.Create(db, migrationsDir, arguments[0], "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		fmt.Printf("Migration created: %s\n", arguments[0])

	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	return nil
}

// createSuperUser provisions a platform account with no agency
func createSuperUser(cfg *config.Config, arguments []string) error {
	if len(arguments) != 3 {
		return fmt.Errorf("usage: migrate create-superuser <username> <email> <password>")
	}
	username, email, password := strings.TrimSpace(arguments[0]), strings.TrimSpace(arguments[1]), arguments[2]
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return err
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	exists, err := users.ExistsByUsernameOrEmail(ctx, username, email, nil)
	if err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return fmt.Errorf("a user with username %q or email %q already exists", username, email)
	}

	hash, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost).Hash(password)
	if err != nil {
		return err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleSuperUser,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create super user: %w", err)
	}
	fmt.Printf("Super user created: %s (%s)\n", user.Username, user.ID)
	return nil
}
