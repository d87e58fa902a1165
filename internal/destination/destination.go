package destination

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/kebairia/reseed/internal/config"
)

var (
	ErrTimeout      = errors.New("operation timed out")
	ErrToolNotFound = errors.New("restore tool not found")
)

// Destination restores a SQL dump into one database instance. Init verifies
// the restore tool and optionally wipes the target first; Write streams a
// dump through the tool and may be called any number of times afterwards.
type Destination interface {
	GetName() string
	GetEngine() string
	Init() error
	Write(data []byte) error
}

// binaryExists resolves tool on PATH and wraps failure in ErrToolNotFound.
func binaryExists(tool string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrToolNotFound, tool, err)
	}
	return nil
}

// wrapTimeout tags err with ErrTimeout when the context expired with that
// cause, so callers can match the timeout instead of a bare kill message.
func wrapTimeout(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// CheckTools verifies that the restore tool for every engine with configured
// instances resolves on PATH. It runs no processes, so it is safe to call
// from preflight commands.
func CheckTools(cfg config.Config) error {
	var errs []error
	if len(cfg.Postgres.Instances) > 0 {
		errs = append(errs, binaryExists(toolOrDefault(cfg.Postgres.Tool, "psql")))
	}
	if len(cfg.MySQL.Instances) > 0 {
		errs = append(errs, binaryExists(toolOrDefault(cfg.MySQL.Tool, "mysql")))
	}
	return errors.Join(errs...)
}

func toolOrDefault(tool, fallback string) string {
	if tool == "" {
		return fallback
	}
	return tool
}
