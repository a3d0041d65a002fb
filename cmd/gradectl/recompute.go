package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type recomputeStats struct {
	mu          sync.Mutex
	users       int
	gradable    int
	notGradable int
	materias    int
	failed      []string
}

func newRecomputeCommand(a *app) *cobra.Command {
	var (
		courseID    int64
		userID      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute parameter and course grades and propagate them to materias",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			users, err := targetUsers(ctx, a.grades, courseID, userID)
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = 1
			}

			stats := &recomputeStats{users: len(users)}
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for _, uid := range users {
				uid := uid
				g.Go(func() error {
					res, err := a.grades.Propagate(gctx, courseID, uid)
					stats.mu.Lock()
					defer stats.mu.Unlock()
					if err != nil {
						if gctx.Err() != nil {
							return gctx.Err()
						}
						a.log().Warn("recompute failed", zap.Int64("course_id", courseID), zap.String("user_id", uid), zap.Error(err))
						stats.failed = append(stats.failed, uid)
						return nil
					}
					if res.FinalGrade.Gradable {
						stats.gradable++
					} else {
						stats.notGradable++
					}
					stats.materias += res.MateriasUpdated
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "course %d: %d users, %d gradable, %d not gradable, %d materia grades written\n",
				courseID, stats.users, stats.gradable, stats.notGradable, stats.materias)
			if len(stats.failed) > 0 {
				return fmt.Errorf("recompute failed for %d users: %v", len(stats.failed), stats.failed)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "course id")
	cmd.Flags().StringVar(&userID, "user", "", "limit the run to one user")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "users processed in parallel")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}
