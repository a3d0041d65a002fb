package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/repository"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/config"
	"github.com/noah-isme/lms-grading-api/pkg/database"
	"github.com/noah-isme/lms-grading-api/pkg/logger"
)

// grader is the part of the grade service the batch commands drive.
type grader interface {
	CourseUsers(ctx context.Context, courseID int64) ([]string, error)
	Propagate(ctx context.Context, courseID int64, userID string) (*models.RecomputeResult, error)
	Audit(ctx context.Context, courseID int64, userID string) (*service.AuditResult, error)
	Export(ctx context.Context, courseID int64, userID, format string) (*service.ExportFile, error)
}

type app struct {
	grades grader
	logger *zap.Logger
	db     *sqlx.DB
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := newRootCommand(a, a.connect)
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(a *app, connect func() error) *cobra.Command {
	root := &cobra.Command{
		Use:           "gradectl",
		Short:         "Batch maintenance of course and materia grades",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.grades != nil {
				return nil
			}
			return connect()
		},
	}
	root.AddCommand(newRecomputeCommand(a), newAuditCommand(a), newExportCommand(a))
	return root
}

// connect wires the grade service straight to the database. Batch runs skip the cache.
func (a *app) connect() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.logger = logr
	a.db = db
	a.grades = service.NewGradeService(
		repository.NewParameterRepository(db),
		repository.NewMateriaRepository(db),
		repository.NewProgressRepository(db),
		repository.NewActivityRepository(db),
		repository.NewGradeSummaryRepository(db),
		nil,
		nil,
		nil,
		logr,
	)
	return nil
}

func (a *app) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// targetUsers returns the single requested user or every user with progress in the course.
func targetUsers(ctx context.Context, grades grader, courseID int64, userID string) ([]string, error) {
	if courseID <= 0 {
		return nil, fmt.Errorf("--course must be a positive course id")
	}
	if userID != "" {
		return []string{userID}, nil
	}
	return grades.CourseUsers(ctx, courseID)
}
