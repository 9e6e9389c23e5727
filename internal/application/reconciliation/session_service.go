package reconciliation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocktake/backend/internal/domain/reconcile"
	"github.com/stocktake/backend/internal/domain/session"
	"github.com/stocktake/backend/internal/domain/shared"
	"github.com/stocktake/backend/internal/infrastructure/config"
	"github.com/stocktake/backend/internal/infrastructure/countsheet"
	"github.com/stocktake/backend/internal/infrastructure/logger"
	"github.com/stocktake/backend/internal/infrastructure/sagefile"
	"github.com/stocktake/backend/internal/infrastructure/storage"
)

// FileKind identifies which stored artifact of a session to download.
type FileKind string

const (
	FileKindOriginal FileKind = "original"
	FileKindTemplate FileKind = "template"
	FileKindFinal    FileKind = "final"
)

// IsValid checks if the kind is a valid FileKind
func (k FileKind) IsValid() bool {
	switch k {
	case FileKindOriginal, FileKindTemplate, FileKindFinal:
		return true
	}
	return false
}

// SessionService drives a count session from upload through reconciliation:
// it parses the export, generates the count sheet, runs the distribution
// engine over the completed sheet, and stores the regenerated file.
type SessionService struct {
	sessions session.Repository
	files    storage.FileStore
	parser   *sagefile.Parser
	cfg      config.ReconcileConfig
}

// NewSessionService creates a new SessionService
func NewSessionService(sessions session.Repository, files storage.FileStore, cfg config.ReconcileConfig) *SessionService {
	return &SessionService{
		sessions: sessions,
		files:    files,
		parser:   sagefile.NewParser(),
		cfg:      cfg,
	}
}

// Upload ingests an export file: it validates and parses the content, stores
// the original, generates the count sheet workbook, and returns the session
// ready for counting.
func (s *SessionService) Upload(ctx context.Context, fileName string, content io.Reader, opts UploadOptions) (*session.CountSession, error) {
	strategy := reconcile.LotDistributionStrategyType(strings.ToUpper(s.cfg.Strategy))
	if opts.Strategy != "" {
		strategy = reconcile.LotDistributionStrategyType(strings.ToUpper(opts.Strategy))
	}
	if !strategy.IsValid() {
		return nil, shared.NewDomainError("INVALID_STRATEGY", fmt.Sprintf("Unknown distribution strategy: %s", strategy))
	}
	mode := reconcile.QuantityMode(s.cfg.QuantityMode)
	if opts.QuantityMode != "" {
		mode = reconcile.QuantityMode(opts.QuantityMode)
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_QUANTITY_MODE", fmt.Sprintf("Unknown quantity mode: %s", mode))
	}

	raw, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	parsed, err := s.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, asDomainError(err)
	}

	sess, err := session.NewCountSession(path.Base(fileName), strategy, mode)
	if err != nil {
		return nil, err
	}
	if len(parsed.Lines) > 0 {
		sess.InventoryDate = sagefile.ExtractInventoryDate(parsed.Lines[0].InventoryID, sess.CreatedAt)
	}

	log := logger.L(ctx).With(zap.String("session", sess.ShortID))

	sess.OriginalKey = s.fileKey(sess, FileKindOriginal)
	if err := s.files.Put(ctx, sess.OriginalKey, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to store original file: %w", err)
	}

	var sheet bytes.Buffer
	if err := countsheet.WriteTemplate(&sheet, parsed.Lines); err != nil {
		return nil, fmt.Errorf("failed to generate count sheet: %w", err)
	}
	templateKey := s.fileKey(sess, FileKindTemplate)
	if err := s.files.Put(ctx, templateKey, &sheet); err != nil {
		return nil, fmt.Errorf("failed to store count sheet: %w", err)
	}
	if err := sess.MarkTemplateGenerated(templateKey, len(parsed.Lines)); err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	log.Info("session created",
		zap.String("file", sess.OriginalName),
		zap.Int("lines", sess.LineCount),
		zap.String("strategy", strategy.String()))
	return sess, nil
}

// Process runs reconciliation for a session from a completed count sheet and
// stores the regenerated export. The sheet format (xlsx or csv) is picked from
// sheetName. Failures are recorded on the session.
func (s *SessionService) Process(ctx context.Context, sessionID, sheetName string, completedSheet io.Reader) (*session.CountSession, error) {
	sess, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	log := logger.L(ctx).With(zap.String("session", sess.ShortID))

	result, err := s.reconcile(ctx, sess, sheetName, completedSheet)
	if err != nil {
		log.Warn("reconciliation failed", zap.Error(err))
		if failErr := sess.MarkFailed(err.Error()); failErr != nil {
			return nil, failErr
		}
		if saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
			return nil, saveErr
		}
		return sess, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	log.Info("reconciliation completed",
		zap.Int("adjustments", result.Summary.TotalAdjustments),
		zap.Int("new_lines", result.Summary.NewLines),
		zap.String("total_moved", result.Summary.TotalMoved.String()))
	return sess, nil
}

// reconcile is the failable core of Process: everything in here that errors
// marks the session failed.
func (s *SessionService) reconcile(ctx context.Context, sess *session.CountSession, sheetName string, completedSheet io.Reader) (*reconcile.Result, error) {
	rows, err := countsheet.Read(sheetName, completedSheet)
	if err != nil {
		return nil, err
	}
	sheet, err := reconcile.NormalizeCountSheet(sess.ShortID, rows, sess.QuantityMode)
	if err != nil {
		return nil, err
	}

	original, err := s.files.Get(ctx, sess.OriginalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load original file: %w", err)
	}
	defer original.Close()
	parsed, err := s.parser.Parse(original)
	if err != nil {
		return nil, asDomainError(err)
	}

	engine, err := reconcile.NewEngine(reconcile.EngineConfig{
		Strategy:   sess.Strategy,
		RankStride: s.cfg.RankStride,
	})
	if err != nil {
		return nil, err
	}
	result, err := engine.Run(parsed.Lines, sheet)
	if err != nil {
		return nil, err
	}

	lines, err := reconcile.ComposeFinalFile(reconcile.ComposeInput{
		Headers:     parsed.Headers,
		Lines:       parsed.Lines,
		Adjustments: result.Adjustments,
		Sheet:       sheet,
		RankStride:  s.cfg.RankStride,
	})
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := sagefile.Write(&out, lines); err != nil {
		return nil, err
	}
	finalKey := s.fileKey(sess, FileKindFinal)
	if err := s.files.Put(ctx, finalKey, &out); err != nil {
		return nil, fmt.Errorf("failed to store final file: %w", err)
	}

	if err := sess.MarkCompleted(finalKey, result.Summary); err != nil {
		return nil, err
	}
	return result, nil
}

// Download opens a stored session artifact. It returns the content and the
// file name to serve it under.
func (s *SessionService) Download(ctx context.Context, sessionID string, kind FileKind) (io.ReadCloser, string, error) {
	if !kind.IsValid() {
		return nil, "", shared.NewDomainError("INVALID_FILE_KIND", fmt.Sprintf("Unknown file kind: %s", kind))
	}
	sess, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	var key, name string
	switch kind {
	case FileKindOriginal:
		key, name = sess.OriginalKey, sess.OriginalName
	case FileKindTemplate:
		key, name = sess.TemplateKey, fmt.Sprintf("count_sheet_%s.xlsx", sess.ShortID)
	case FileKindFinal:
		key, name = sess.FinalKey, fmt.Sprintf("final_%s", sess.OriginalName)
	}
	if key == "" {
		return nil, "", shared.ErrNotFound
	}

	rc, err := s.files.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, name, nil
}

// Get returns one session by ID or short ID.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*session.CountSession, error) {
	return s.find(ctx, sessionID)
}

// List returns sessions newest first plus the total count.
func (s *SessionService) List(ctx context.Context, limit, offset int) ([]session.CountSession, int64, error) {
	sessions, err := s.sessions.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Delete removes a session and all its stored files.
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.find(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.files.DeletePrefix(ctx, s.sessionPrefix(sess)); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sess.ID)
}

// Cleanup removes terminal sessions older than the retention cutoff together
// with their stored files. It returns the number of sessions removed.
func (s *SessionService) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	expired, err := s.sessions.FindExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := range expired {
		sess := &expired[i]
		if err := s.files.DeletePrefix(ctx, s.sessionPrefix(sess)); err != nil {
			logger.L(ctx).Warn("cleanup: failed to delete files",
				zap.String("session", sess.ShortID), zap.Error(err))
			continue
		}
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			logger.L(ctx).Warn("cleanup: failed to delete session",
				zap.String("session", sess.ShortID), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.L(ctx).Info("cleanup removed expired sessions", zap.Int("removed", removed))
	}
	return removed, nil
}

// asDomainError turns a file parse error into a domain error so the interface
// layer reports it as bad input rather than an internal failure.
func asDomainError(err error) error {
	var parseErr *sagefile.ParseError
	if errors.As(err, &parseErr) {
		return shared.NewDomainError("INVALID_INPUT", parseErr.Error())
	}
	return err
}

// find resolves a session by UUID first, then by short ID.
func (s *SessionService) find(ctx context.Context, sessionID string) (*session.CountSession, error) {
	if id, err := uuid.Parse(sessionID); err == nil {
		return s.sessions.FindByID(ctx, id)
	}
	return s.sessions.FindByShortID(ctx, sessionID)
}

func (s *SessionService) sessionPrefix(sess *session.CountSession) string {
	return fmt.Sprintf("sessions/%s/", sess.ShortID)
}

func (s *SessionService) fileKey(sess *session.CountSession, kind FileKind) string {
	switch kind {
	case FileKindTemplate:
		return s.sessionPrefix(sess) + "count_sheet.xlsx"
	case FileKindFinal:
		return s.sessionPrefix(sess) + "final.txt"
	default:
		return s.sessionPrefix(sess) + "original.txt"
	}
}
