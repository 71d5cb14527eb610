package vadcompare

import (
	"context"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

type Service interface {
	Compare(ctx context.Context, req Request) (*Report, error)
	History(limit int) ([]models.Run, error)
	Close() error
}

// History persists comparison runs.
type History interface {
	RecordRun(run models.Run) (string, error)
	ListRuns(limit int) ([]models.Run, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
