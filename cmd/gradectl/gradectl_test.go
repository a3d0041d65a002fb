package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
)

type graderStub struct {
	mu         sync.Mutex
	users      []string
	propagated []string
	failUser   string
	disagree   map[string]bool
}

func (g *graderStub) CourseUsers(context.Context, int64) ([]string, error) {
	return g.users, nil
}

func (g *graderStub) Propagate(_ context.Context, courseID int64, userID string) (*models.RecomputeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if userID == g.failUser {
		return nil, errors.New("deadlock detected")
	}
	g.propagated = append(g.propagated, userID)
	if userID == "empty" {
		return &models.RecomputeResult{CourseID: courseID, UserID: userID, FinalGrade: models.NotGradable}, nil
	}
	return &models.RecomputeResult{CourseID: courseID, UserID: userID, FinalGrade: models.Gradable(4), MateriasUpdated: 2}, nil
}

func (g *graderStub) Audit(_ context.Context, courseID int64, userID string) (*service.AuditResult, error) {
	res := &service.AuditResult{CourseID: courseID, UserID: userID, Application: models.Gradable(3.4), Aggregate: models.Gradable(3.4), Agree: true}
	if g.disagree[userID] {
		res.Aggregate = models.Gradable(2.4)
		res.Agree = false
	}
	return res, nil
}

func (g *graderStub) Export(_ context.Context, courseID int64, userID, format string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: userID + "." + format, ContentType: "text/csv", Body: []byte("grade\n")}, nil
}

func run(t *testing.T, grades grader, args ...string) (string, error) {
	t.Helper()
	a := &app{grades: grades}
	root := newRootCommand(a, func() error { return errors.New("unexpected connect") })
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecomputeCommand(t *testing.T) {
	stub := &graderStub{users: []string{"u1", "u2", "empty"}}

	out, err := run(t, stub, "recompute", "--course", "10", "--concurrency", "2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "empty"}, stub.propagated)
	assert.Contains(t, out, "course 10: 3 users, 2 gradable, 1 not gradable, 4 materia grades written")
}

func TestRecomputeCommandSingleUserAndFailures(t *testing.T) {
	stub := &graderStub{users: []string{"u1", "u2"}, failUser: "u2"}

	_, err := run(t, stub, "recompute", "--course", "10", "--user", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, stub.propagated)

	_, err = run(t, stub, "recompute", "--course", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "u2")

	_, err = run(t, stub, "recompute")
	assert.Error(t, err)
}

func TestAuditCommand(t *testing.T) {
	out, err := run(t, &graderStub{users: []string{"u1", "u2"}}, "audit", "--course", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "all final grades agree")

	out, err = run(t, &graderStub{users: []string{"u1", "u2"}, disagree: map[string]bool{"u2": true}}, "audit", "--course", "10")
	require.Error(t, err)
	assert.Contains(t, out, "u2")
	assert.Contains(t, out, "2.40")
	assert.Contains(t, err.Error(), "1 of 2 users disagree")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, &graderStub{users: []string{"u1", "u2"}}, "export", "--course", "10", "--out", dir)
	require.NoError(t, err)

	for _, uid := range []string{"u1", "u2"} {
		data, err := os.ReadFile(filepath.Join(dir, "course_10", uid+".csv"))
		require.NoError(t, err)
		assert.Equal(t, "grade\n", string(data))
	}
	assert.Contains(t, out, filepath.Join("course_10", "u1.csv"))
}
