package reconciliation

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stocktake/backend/internal/domain/session"
	"github.com/stocktake/backend/internal/domain/shared"
	"github.com/stocktake/backend/internal/infrastructure/config"
	"github.com/stocktake/backend/internal/infrastructure/storage"
)

const sampleExport = "E;SES001;20240610;;SIT1\n" +
	"S;SES001;2406INV00001;1000;SIT1;50;0;1;ART1;A01;A;UN;;Z1;LOT010124\n" +
	"S;SES001;2406INV00001;2000;SIT1;30;0;1;ART1;A01;A;UN;;Z1;LOT020224\n"

// memorySessionRepo is an in-memory session.Repository for service tests.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]session.CountSession
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[uuid.UUID]session.CountSession)}
}

func (r *memorySessionRepo) FindByID(_ context.Context, id uuid.UUID) (*session.CountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (r *memorySessionRepo) FindByShortID(_ context.Context, shortID string) (*session.CountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if strings.EqualFold(s.ShortID, shortID) {
			s := s
			return &s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memorySessionRepo) FindAll(_ context.Context, limit, offset int) ([]session.CountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]session.CountSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memorySessionRepo) FindExpired(_ context.Context, cutoff time.Time) ([]session.CountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []session.CountSession
	for _, s := range r.sessions {
		if s.ExpiredBefore(cutoff) {
			expired = append(expired, s)
		}
	}
	return expired, nil
}

func (r *memorySessionRepo) Save(_ context.Context, s *session.CountSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *memorySessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sessions)), nil
}

func newTestService(t *testing.T) (*SessionService, *memorySessionRepo) {
	t.Helper()
	files, err := storage.NewLocalFileStore(t.TempDir())
	require.NoError(t, err)
	repo := newMemorySessionRepo()
	svc := NewSessionService(repo, files, config.ReconcileConfig{
		Strategy:     "FIFO",
		QuantityMode: "strict",
		RankStride:   1000,
	})
	return svc, repo
}

func fillCountSheet(t *testing.T, template io.Reader, counted ...string) *bytes.Buffer {
	t.Helper()
	f, err := excelize.OpenReader(template)
	require.NoError(t, err)
	defer f.Close()
	for i, v := range counted {
		cell, err := excelize.CoordinatesToCellName(5, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Count", cell, v))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestSessionService_Upload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "/tmp/export.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, session.StatusTemplateGenerated, sess.Status)
	assert.Equal(t, "export.txt", sess.OriginalName)
	assert.Equal(t, 2, sess.LineCount)
	require.NotNil(t, sess.InventoryDate)
	assert.Equal(t, time.Date(sess.CreatedAt.Year(), 6, 24, 0, 0, 0, 0, time.UTC), *sess.InventoryDate)

	t.Run("template is downloadable", func(t *testing.T) {
		rc, name, err := svc.Download(ctx, sess.ShortID, FileKindTemplate)
		require.NoError(t, err)
		defer rc.Close()
		assert.Contains(t, name, ".xlsx")

		f, err := excelize.OpenReader(rc)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Count")
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("rejects malformed export", func(t *testing.T) {
		_, err := svc.Upload(ctx, "bad.txt", strings.NewReader("S;too;short\n"), UploadOptions{})
		assert.Error(t, err)
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		_, err := svc.Upload(ctx, "export.txt", strings.NewReader(sampleExport), UploadOptions{Strategy: "LRU"})
		assert.Error(t, err)
	})

	t.Run("rejects unknown quantity mode", func(t *testing.T) {
		_, err := svc.Upload(ctx, "export.txt", strings.NewReader(sampleExport), UploadOptions{QuantityMode: "relaxed"})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, "INVALID_QUANTITY_MODE"))
	})
}

func TestSessionService_Process(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "export.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)

	rc, _, err := svc.Download(ctx, sess.ShortID, FileKindTemplate)
	require.NoError(t, err)
	sheet := fillCountSheet(t, rc, "40", "30")
	rc.Close()

	processed, err := svc.Process(ctx, sess.ShortID, "count_sheet.xlsx", sheet)
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, processed.Status)
	require.NotNil(t, processed.Summary)
	assert.Equal(t, 1, processed.Summary.TotalAdjustments)
	assert.Equal(t, 1, processed.Summary.OrdinaryAdjustments)
	assert.Equal(t, 0, processed.Summary.NewLines)

	final, name, err := svc.Download(ctx, sess.ShortID, FileKindFinal)
	require.NoError(t, err)
	defer final.Close()
	assert.Equal(t, "final_export.txt", name)

	content, err := io.ReadAll(final)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "E;SES001;20240610;;SIT1", lines[0])
	assert.Equal(t, "S;SES001;2406INV00001;1000;SIT1;40;40;2;ART1;A01;A;UN;;Z1;LOT010124", lines[1])
	assert.Equal(t, "S;SES001;2406INV00001;2000;SIT1;30;30;2;ART1;A01;A;UN;;Z1;LOT020224", lines[2])
}

func TestSessionService_ProcessCSVSheet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "export.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)

	csvSheet := "Article;Inventory;Lot;Theoretical Qty;Counted Qty\n" +
		"ART1;2406INV00001;LOT010124;50;40\n" +
		"ART1;2406INV00001;LOT020224;30;30\n"

	processed, err := svc.Process(ctx, sess.ShortID, "count_sheet.csv", strings.NewReader(csvSheet))
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, processed.Status)
	require.NotNil(t, processed.Summary)
	assert.Equal(t, 1, processed.Summary.TotalAdjustments)
}

func TestSessionService_ProcessFailureMarksSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "export.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)

	rc, _, err := svc.Download(ctx, sess.ShortID, FileKindTemplate)
	require.NoError(t, err)
	sheet := fillCountSheet(t, rc, "forty", "30")
	rc.Close()

	_, err = svc.Process(ctx, sess.ShortID, "count_sheet.xlsx", sheet)
	require.Error(t, err)

	failed, err := svc.Get(ctx, sess.ShortID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.FailureReason)

	t.Run("cannot reprocess a failed session", func(t *testing.T) {
		_, err := svc.Process(ctx, sess.ShortID, "count_sheet.xlsx", bytes.NewReader(nil))
		assert.Error(t, err)
	})
}

func TestSessionService_ListAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "a.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "b.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)

	sessions, total, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, int64(2), total)

	require.NoError(t, svc.Delete(ctx, first.ShortID))
	_, err = svc.Get(ctx, first.ShortID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, _, err = svc.Download(ctx, first.ShortID, FileKindOriginal)
	assert.Error(t, err)
}

func TestSessionService_Cleanup(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "old.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)
	require.NoError(t, sess.MarkFailed("abandoned"))
	stale := time.Now().UTC().Add(-72 * time.Hour)
	sess.UpdatedAt = stale
	sess.CompletedAt = &stale
	require.NoError(t, repo.Save(ctx, sess))

	_, err = svc.Upload(ctx, "fresh.txt", strings.NewReader(sampleExport), UploadOptions{})
	require.NoError(t, err)

	removed, err := svc.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, total, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
