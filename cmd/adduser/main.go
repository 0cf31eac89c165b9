package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"piggybank/internal/db"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/services"
	"piggybank/internal/store"
)

type registrar interface {
	Register(ctx context.Context, req services.RegisterRequest) (models.User, error)
}

// opener connects to the database and returns a registrar plus its closer.
type opener func(ctx context.Context, databaseURL string) (registrar, func() error, error)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, openUserService); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openUserService(ctx context.Context, databaseURL string) (registrar, func() error, error) {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	users := services.NewUserService(db.NewTxRunner(database), store.NewUserStore(database), log.Discard())
	return users, database.Close, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, open opener) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	email := fs.String("email", "", "Email address")
	role := fs.String("role", models.RoleParent, "Role: parent, child or admin")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	databaseURL := fs.String("db", "", "Postgres URL (defaults to DATABASE_URL)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	if *username == "" {
		missing = append(missing, "user")
	}
	if *email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> -email <email> [-role <role>] [-password <password>] [-db <url>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	url := *databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("no database URL: pass -db or set DATABASE_URL")
	}

	ctx := context.Background()
	users, closeDB, err := open(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeDB()

	user, err := users.Register(ctx, services.RegisterRequest{
		Username: *username,
		Email:    *email,
		Password: password,
		Role:     *role,
	})
	if errors.Is(err, services.ErrDuplicateUser) {
		return fmt.Errorf("user %s already exists", *username)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s (role %s)\n", user.Username, user.ID, user.Role)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
