package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/pkg/storage"
)

func newExportCommand(a *app) *cobra.Command {
	var (
		courseID int64
		userID   string
		format   string
		outDir   string
		prune    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write grade summaries of a course to a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir, err := storage.NewExportDir(outDir)
			if err != nil {
				return err
			}
			if prune > 0 {
				removed, err := dir.PruneOlderThan(prune)
				if err != nil {
					return err
				}
				a.log().Info("pruned old exports", zap.Int("files", len(removed)))
			}

			users, err := targetUsers(ctx, a.grades, courseID, userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, uid := range users {
				file, err := a.grades.Export(ctx, courseID, uid, format)
				if err != nil {
					return fmt.Errorf("export user %s: %w", uid, err)
				}
				path, err := dir.Save(filepath.Join(fmt.Sprintf("course_%d", courseID), file.Filename), file.Body)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "course id")
	cmd.Flags().StringVar(&userID, "user", "", "limit the export to one user")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or pdf")
	cmd.Flags().StringVar(&outDir, "out", "./exports", "output directory")
	cmd.Flags().DurationVar(&prune, "prune-older-than", 0, "remove exports older than this before writing")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}
