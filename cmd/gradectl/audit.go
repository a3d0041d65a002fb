package main

import (
	"fmt"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
)

func newAuditCommand(a *app) *cobra.Command {
	var (
		courseID    int64
		userID      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare the aggregate summary query with the application computation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			users, err := targetUsers(ctx, a.grades, courseID, userID)
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = 1
			}

			var (
				mu         sync.Mutex
				mismatches []*service.AuditResult
			)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for _, uid := range users {
				uid := uid
				g.Go(func() error {
					res, err := a.grades.Audit(gctx, courseID, uid)
					if err != nil {
						return fmt.Errorf("audit user %s: %w", uid, err)
					}
					if !res.Agree {
						mu.Lock()
						mismatches = append(mismatches, res)
						mu.Unlock()
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(mismatches) == 0 {
				fmt.Fprintf(out, "course %d: %d users audited, all final grades agree\n", courseID, len(users))
				return nil
			}
			sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].UserID < mismatches[j].UserID })
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tAPPLICATION\tAGGREGATE")
			for _, m := range mismatches {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.UserID, formatCourseGrade(m.Application), formatCourseGrade(m.Aggregate))
			}
			_ = tw.Flush()
			return fmt.Errorf("course %d: %d of %d users disagree", courseID, len(mismatches), len(users))
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "course id")
	cmd.Flags().StringVar(&userID, "user", "", "limit the audit to one user")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "users audited in parallel")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func formatCourseGrade(g models.CourseGrade) string {
	if !g.Gradable {
		return "-"
	}
	return fmt.Sprintf("%.2f", g.Value)
}
