package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/akriventsev/ordering/framework/migrations"
	"github.com/akriventsev/ordering/internal/infrastructure/postgres"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	dbURL := flags.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	migrationsDir := flags.String("migrations-dir", "", "Path to migrations directory (default: embedded schema)")
	_ = flags.Parse(os.Args[2:])

	if err := run(context.Background(), command, *dbURL, *migrationsDir, flags.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command, dbURL, migrationsDir string, args []string) error {
	switch command {
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("migration name is required")
		}
		if migrationsDir == "" {
			return fmt.Errorf("--migrations-dir is required for create")
		}
		path, err := migrations.CreateMigration(migrationsDir, args[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Created migration: %s\n", path)
		return nil
	case "up", "down", "status", "version":
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}

	if dbURL == "" {
		return fmt.Errorf("--database-url is required")
	}

	m, err := openMigrator(dbURL, migrationsDir)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		steps, err := stepsArg(args, 0)
		if err != nil {
			return err
		}
		applied, err := m.UpSteps(ctx, steps)
		if err != nil {
			return err
		}
		fmt.Printf("Applied %d migration(s)\n", applied)
	case "down":
		steps, err := stepsArg(args, 1)
		if err != nil {
			return err
		}
		rolledBack, err := m.Down(ctx, steps)
		if err != nil {
			return err
		}
		fmt.Printf("Rolled back %d migration(s)\n", rolledBack)
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Migration Status:")
		for _, status := range statuses {
			fmt.Printf("  [%-7s] %d - %s", status.Status, status.Version, status.Name)
			if status.AppliedAt != nil {
				fmt.Printf(" (applied at %s)", status.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Println()
		}
		pending, err := m.HasPending(ctx)
		if err != nil {
			return err
		}
		if !pending {
			fmt.Println("Schema is up to date")
		}
	case "version":
		version, err := m.Version(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Println("No migrations applied")
			return nil
		}
		fmt.Println(version)
	}
	return nil
}

func openMigrator(dbURL, migrationsDir string) (*migrations.Migrator, error) {
	var source fs.FS = postgres.Migrations()
	if migrationsDir != "" {
		source = os.DirFS(migrationsDir)
	}

	db, err := migrations.OpenDB(dbURL)
	if err != nil {
		return nil, err
	}
	m, err := migrations.NewMigrator(db, source)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func stepsArg(args []string, defaultSteps int) (int, error) {
	if len(args) == 0 {
		return defaultSteps, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid step count %q", args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Println("Ordering Migration Tool")
	fmt.Println()
	fmt.Println("Usage: ordering-migrate <command> [flags] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up [N]        - Apply all pending migrations (or N migrations)")
	fmt.Println("  down [N]      - Rollback N migrations (default: 1)")
	fmt.Println("  status        - Show status of all migrations")
	fmt.Println("  version       - Show current migration version")
	fmt.Println("  create <name> - Create a new migration in --migrations-dir")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --database-url    - Database connection string (default: $DATABASE_URL)")
	fmt.Println("  --migrations-dir  - Path to migrations directory (default: embedded schema)")
}
