package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"piggybank/internal/config"
	"piggybank/internal/db"
)

const usage = `usage: migrate [up|down|reset|version]

  up       apply every pending migration (default)
  down     roll every migration back
  reset    drop and recreate the schema
  version  print the applied schema version`

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if err := run(db.NewMigrator(cfg.DatabaseURL), command); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

type migrator interface {
	Up() error
	Down() error
	Reset() error
	Version() (uint, bool, error)
}

func run(m migrator, command string) error {
	switch command {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
		fmt.Println("migrations rolled back")
	case "reset":
		if err := m.Reset(); err != nil {
			return err
		}
		fmt.Println("schema reset")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
	return nil
}
