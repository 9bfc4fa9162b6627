// Command botctl is the operator tool for managing bot principals
// directly against the database: assigning roles, seeding default
// credentials and resetting passwords without going through the bot.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/mgkeit/pairalert/internal/bot/config"
	"github.com/mgkeit/pairalert/internal/bot/credentials"
	"github.com/mgkeit/pairalert/internal/bot/password"
	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/logging"
)

const usage = `usage: botctl <command> [flags]

commands:
  assign       assign a role to a principal and seed default credentials
  setpassword  set a principal's password (prompted, hidden input)
  status       show a principal's stored state
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "assign":
		err = runAssign(os.Args[2:])
	case "setpassword":
		err = runSetPassword(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "botctl: %v\n", err)
		os.Exit(1)
	}
}

func defaultDSN() string {
	var cfg config.Config
	cfg.LoadDefaults()
	return cfg.DatabaseDSN
}

func openService(dsn string) (*sql.DB, *credentials.Service, principals.Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("db open error: %w", err)
	}
	repo := principals.NewPostgresRepository(db)
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	svc := credentials.NewService(repo, password.NewHasher(0), logger)
	return db, svc, repo, nil
}

func runAssign(args []string) error {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	dsn := fs.String("d", defaultDSN(), "database DSN")
	id := fs.Int64("id", 0, "principal ID")
	role := fs.String("role", "", "role (admin or curator)")
	fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("-id is required")
	}
	r := principals.ParseRole(*role)
	if !r.Privileged() {
		return fmt.Errorf("role must be admin or curator, got %q", *role)
	}

	db, svc, _, err := openService(*dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := svc.AssignRole(ctx, *id, r); err != nil {
		return err
	}
	if err := svc.EnsureCredentialSeed(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("principal %d assigned role %s\n", *id, r)
	return nil
}

func runSetPassword(args []string) error {
	fs := flag.NewFlagSet("setpassword", flag.ExitOnError)
	dsn := fs.String("d", defaultDSN(), "database DSN")
	id := fs.Int64("id", 0, "principal ID")
	fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("-id is required")
	}

	plaintext, err := promptPassword()
	if err != nil {
		return err
	}

	db, svc, _, err := openService(*dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := svc.ChangePassword(context.Background(), *id, plaintext); err != nil {
		return err
	}
	fmt.Printf("password updated for principal %d\n", *id)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("New password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if err := password.Validate(string(first)); err != nil {
		return "", err
	}
	return string(first), nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dsn := fs.String("d", defaultDSN(), "database DSN")
	id := fs.Int64("id", 0, "principal ID")
	fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("-id is required")
	}

	db, _, repo, err := openService(*dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := repo.Get(context.Background(), *id)
	if err != nil {
		return err
	}
	fmt.Printf("id:               %d\n", p.ID)
	fmt.Printf("role:             %s\n", p.Role)
	fmt.Printf("password changed: %t\n", p.PasswordChanged)
	fmt.Printf("2fa enabled:      %t\n", p.TwoFAEnabled)
	fmt.Printf("backup codes:     %d\n", len(p.BackupCodes))
	fmt.Printf("last auth (unix): %d\n", p.LastAuthTime)
	return nil
}
