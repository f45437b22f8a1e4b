package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Step is one migration as seen by a command: applied, rolled back, or
// reported by status.
type Step struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
	Duration  time.Duration
}

// Source returns the migration set for dir, or the embedded set when dir is
// empty.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(Embedded, embeddedDir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Runner applies goose migrations from a single source against postgres.
// It never closes the database handle it was given.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, source fs.FS, opts ...goose.ProviderOption) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if source == nil {
		return nil, errors.New("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Exec runs up, down or status.
func (r *Runner) Exec(ctx context.Context, command string) ([]Step, error) {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		return fromResults(results), wrapGoose("up", err)
	case "down":
		result, err := r.provider.Down(ctx)
		if result == nil {
			return nil, wrapGoose("down", err)
		}
		return fromResults([]*goose.MigrationResult{result}), wrapGoose("down", err)
	case "status":
		statuses, err := r.provider.Status(ctx)
		if err != nil {
			return nil, wrapGoose("status", err)
		}
		steps := make([]Step, 0, len(statuses))
		for _, s := range statuses {
			steps = append(steps, Step{
				Version:   s.Source.Version,
				Name:      path.Base(s.Source.Path),
				Applied:   s.State == goose.StateApplied,
				AppliedAt: s.AppliedAt,
			})
		}
		return steps, nil
	default:
		return nil, fmt.Errorf("unsupported migrate command %q", command)
	}
}

// To moves the schema up or down to target.
func (r *Runner) To(ctx context.Context, target int64) ([]Step, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrapGoose("version", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := r.provider.UpTo(ctx, target)
		return fromResults(results), wrapGoose(fmt.Sprintf("up-to %d", target), err)
	default:
		results, err := r.provider.DownTo(ctx, target)
		return fromResults(results), wrapGoose(fmt.Sprintf("down-to %d", target), err)
	}
}

// Run executes command against the migrations in dir.
func Run(ctx context.Context, db *sql.DB, dir string, command string) ([]Step, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	return runFrom(ctx, db, dir, command)
}

// RunEmbedded executes command against the migrations compiled into the binary.
func RunEmbedded(ctx context.Context, db *sql.DB, command string) ([]Step, error) {
	return runFrom(ctx, db, "", command)
}

func runFrom(ctx context.Context, db *sql.DB, dir, command string) ([]Step, error) {
	source, err := Source(dir)
	if err != nil {
		return nil, err
	}
	runner, err := NewRunner(db, source)
	if err != nil {
		return nil, err
	}
	return runner.Exec(ctx, command)
}

// MigrateToVersion migrates the schema in either direction to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) ([]Step, error) {
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return nil, err
	}
	source, err := Source(dir)
	if err != nil {
		return nil, err
	}
	runner, err := NewRunner(db, source)
	if err != nil {
		return nil, err
	}
	return runner.To(ctx, target)
}

// ParseVersion accepts a YYYYMMDDHHMMSS version, or 0 for an empty schema.
func ParseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("target version is required")
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	if version != 0 && len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	return version, nil
}

// EmbeddedFiles lists the embedded migration filenames in order.
func EmbeddedFiles() ([]string, error) {
	return fs.Glob(Embedded, embeddedDir+"/*.sql")
}

func fromResults(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:  res.Source.Version,
			Name:     path.Base(res.Source.Path),
			Applied:  res.Direction == "up" && res.Error == nil,
			Duration: res.Duration,
		})
	}
	return steps
}

func wrapGoose(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
