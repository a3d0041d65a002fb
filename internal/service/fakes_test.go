package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type fakeActivities struct {
	mu    sync.Mutex
	items map[int64]*models.Activity
	calls int
}

func (f *fakeActivities) FindByID(_ context.Context, id int64) (*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	a, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

// fakeProgress mirrors the conditional upsert of the progress repository.
type fakeProgress struct {
	mu         sync.Mutex
	rows       map[string]models.ActivityProgress
	activities *fakeActivities
	err        error
	writes     int
}

func newFakeProgress(activities *fakeActivities) *fakeProgress {
	return &fakeProgress{rows: make(map[string]models.ActivityProgress), activities: activities}
}

func progressKey(userID string, activityID int64) string {
	return fmt.Sprintf("%s/%d", userID, activityID)
}

func (f *fakeProgress) Find(_ context.Context, userID string, activityID int64) (*models.ActivityProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[progressKey(userID, activityID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (f *fakeProgress) RecordAttempt(_ context.Context, p models.ActivityProgress, maxAttempts int) (*models.AttemptOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := progressKey(p.UserID, p.ActivityID)
	current, ok := f.rows[key]
	if ok && p.Revisada && current.AttemptCount >= maxAttempts {
		return nil, sql.ErrNoRows
	}
	p.AttemptCount = current.AttemptCount + 1
	f.rows[key] = p
	f.writes++
	return &models.AttemptOutcome{AttemptCount: p.AttemptCount, FinalGrade: p.FinalGrade}, nil
}

func (f *fakeProgress) RecordSubmission(_ context.Context, p models.ActivityProgress, maxAttempts int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	key := progressKey(p.UserID, p.ActivityID)
	current, ok := f.rows[key]
	if ok && maxAttempts > 0 && current.AttemptCount >= maxAttempts {
		return 0, sql.ErrNoRows
	}
	if p.FinalGrade == nil {
		p.FinalGrade = current.FinalGrade
	}
	p.AttemptCount = current.AttemptCount + 1
	f.rows[key] = p
	f.writes++
	return p.AttemptCount, nil
}

func (f *fakeProgress) SetGrade(_ context.Context, userID string, activityID int64, grade float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := progressKey(userID, activityID)
	row := f.rows[key]
	row.UserID, row.ActivityID = userID, activityID
	row.Progress, row.IsCompleted = 100, true
	row.FinalGrade = &grade
	f.rows[key] = row
	f.writes++
	return nil
}

func (f *fakeProgress) CompletedGrades(_ context.Context, courseID int64, userID string) ([]models.CompletedActivityGrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CompletedActivityGrade
	for _, row := range f.rows {
		if row.UserID != userID || !row.IsCompleted || row.FinalGrade == nil {
			continue
		}
		a, ok := f.activities.items[row.ActivityID]
		if !ok || a.CourseID != courseID || a.ParameterID == nil {
			continue
		}
		out = append(out, models.CompletedActivityGrade{
			ParameterID:  *a.ParameterID,
			ActivityID:   a.ID,
			ActivityName: a.Name,
			FinalGrade:   *row.FinalGrade,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID < out[j].ActivityID })
	return out, nil
}

func (f *fakeProgress) UsersWithProgress(_ context.Context, courseID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, row := range f.rows {
		a, ok := f.activities.items[row.ActivityID]
		if !ok || a.CourseID != courseID {
			continue
		}
		if _, dup := seen[row.UserID]; dup {
			continue
		}
		seen[row.UserID] = struct{}{}
		out = append(out, row.UserID)
	}
	sort.Strings(out)
	return out, nil
}

// memoryCache stores JSON encoded values like the Redis backed cache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

// cacheRepoStub implements CacheRepository for CacheService tests.
type cacheRepoStub struct {
	values  map[string]string
	lastTTL time.Duration
	getErr  error
}

func (r *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (r *cacheRepoStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if r.values == nil {
		r.values = map[string]string{}
	}
	r.values[key] = string(raw)
	r.lastTTL = ttl
	return nil
}

func (r *cacheRepoStub) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}

type scheduledPair struct {
	CourseID int64
	UserID   string
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduledPair
}

func (s *fakeScheduler) Schedule(courseID int64, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scheduledPair{CourseID: courseID, UserID: userID})
}

type fakeParams struct {
	items  []models.Parameter
	grades map[string]models.ParameterGrade
	upsert int
}

func (f *fakeParams) ListByCourse(_ context.Context, courseID int64) ([]models.Parameter, error) {
	var out []models.Parameter
	for _, p := range f.items {
		if p.CourseID == courseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParams) UpsertGrades(_ context.Context, grades []models.ParameterGrade) error {
	if f.grades == nil {
		f.grades = map[string]models.ParameterGrade{}
	}
	for _, g := range grades {
		f.grades[fmt.Sprintf("%d/%s", g.ParameterID, g.UserID)] = g
	}
	f.upsert++
	return nil
}

type fakeMaterias struct {
	items  []models.Materia
	grades map[string]models.MateriaGrade
	err    error
	upsert int
}

func (f *fakeMaterias) ListByCourse(_ context.Context, courseID int64) ([]models.Materia, error) {
	var out []models.Materia
	for _, m := range f.items {
		if m.CourseID != nil && *m.CourseID == courseID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMaterias) UpsertGrades(_ context.Context, grades []models.MateriaGrade) error {
	if f.err != nil {
		return f.err
	}
	if f.grades == nil {
		f.grades = map[string]models.MateriaGrade{}
	}
	for _, g := range grades {
		f.grades[fmt.Sprintf("%d/%s", g.MateriaID, g.UserID)] = g
	}
	f.upsert++
	return nil
}

func (f *fakeMaterias) ListGrades(_ context.Context, courseID int64, userID string) ([]models.MateriaGrade, error) {
	var out []models.MateriaGrade
	for _, m := range f.items {
		if m.CourseID == nil || *m.CourseID != courseID {
			continue
		}
		if g, ok := f.grades[fmt.Sprintf("%d/%s", m.ID, userID)]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// fakeSummaries renders summary rows the way the window query does, from the same fakes.
type fakeSummaries struct {
	params   *fakeParams
	progress *fakeProgress
}

func (f *fakeSummaries) Summary(ctx context.Context, courseID int64, userID string) ([]models.SummaryRow, error) {
	params, _ := f.params.ListByCourse(ctx, courseID)
	completed, _ := f.progress.CompletedGrades(ctx, courseID, userID)
	aggs := AggregateParameters(params, completed)
	var weighted, weights float64
	means := map[int64]models.ParameterAggregate{}
	for _, a := range aggs {
		weighted += a.Mean * a.Weight
		weights += a.Weight
		means[a.ParameterID] = a
	}
	var final *float64
	if weights > 0 {
		v := weighted / weights
		final = &v
	}
	var rows []models.SummaryRow
	for _, c := range completed {
		agg, ok := means[c.ParameterID]
		if !ok {
			continue
		}
		rows = append(rows, models.SummaryRow{
			ParameterID:    agg.ParameterID,
			ParameterName:  agg.Name,
			Weight:         agg.Weight,
			ParameterGrade: agg.Mean,
			FinalGrade:     final,
			ActivityID:     c.ActivityID,
			ActivityName:   c.ActivityName,
			ActivityGrade:  c.FinalGrade,
		})
	}
	return rows, nil
}

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }
