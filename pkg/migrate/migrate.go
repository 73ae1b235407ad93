package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

// DefaultDir holds the Postgres schema for users, the catalog, carts, orders
// and delivery partners.
const DefaultDir = "pkg/migrate/migrations"

// Command is one cmd/migrate operation.
type Command string

const (
	CommandUp       Command = "up"
	CommandDown     Command = "down"
	CommandStatus   Command = "status"
	CommandVersion  Command = "version"
	CommandCreate   Command = "create"
	CommandValidate Command = "validate"
)

var commands = []Command{CommandUp, CommandDown, CommandStatus, CommandVersion, CommandCreate, CommandValidate}

// ParseCommand accepts any Command value, case-insensitively.
func ParseCommand(raw string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range commands {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown migrate command %q", raw)
}

// NeedsDB reports whether the command opens a database connection.
func (c Command) NeedsDB() bool {
	return c != CommandCreate && c != CommandValidate
}

// ParseVersion reads a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", raw, err)
	}
	return v, nil
}

// Run applies up, down or status. The directory is validated first so a
// malformed file never reaches the database.
func Run(ctx context.Context, db *sql.DB, dir string, cmd Command) error {
	if err := prepare(db, dir); err != nil {
		return err
	}
	switch cmd {
	case CommandUp, CommandDown, CommandStatus:
	default:
		return fmt.Errorf("command %q cannot be run directly", cmd)
	}
	if err := goose.RunContext(ctx, string(cmd), db, dir); err != nil {
		return fmt.Errorf("goose %s: %w", cmd, err)
	}
	return nil
}

// ToVersion moves the schema up or down until it reaches target.
func ToVersion(ctx context.Context, db *sql.DB, dir string, target int64) error {
	if err := prepare(db, dir); err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		err = goose.UpToContext(ctx, db, dir, target)
	default:
		err = goose.DownToContext(ctx, db, dir, target)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func prepare(db *sql.DB, dir string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := ValidateDir(dir); err != nil {
		return fmt.Errorf("validate migrations: %w", err)
	}
	// SQL files use Postgres syntax; sqlite databases are built from the models.
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
