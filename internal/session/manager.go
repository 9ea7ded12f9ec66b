// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "study-advisor/internal/common/errors"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/common/metrics"
	"study-advisor/internal/models"
	"study-advisor/internal/normalizer"
	"study-advisor/internal/pipeline"
)

// Runner abstracts the pipeline for the manager.
type Runner interface {
	Run(ctx context.Context, rawText string, prior *models.Profile, emit pipeline.EventSink) (*pipeline.RunOutput, error)
}

// Notifier is invoked best-effort after a successful pipeline turn.
type Notifier interface {
	NotifyReportReady(ctx context.Context, sessionID string, report *models.Report) error
}

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	Session     *models.Session
	Report      *models.Report
	RunID       string
	PipelineRan bool
}

// Manager applies conversation turns to sessions. Turns on the same session
// are serialized: a second message arriving mid-run waits for the first to
// finish rather than racing it.
type Manager struct {
	store    Store
	runner   Runner
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager builds a session manager. notifier may be nil.
func NewManager(store Store, runner Runner, notifier Notifier, log logger.Logger) *Manager {
	return &Manager{
		store:    store,
		runner:   runner,
		notifier: notifier,
		logger:   log.With(map[string]interface{}{"component": "session-manager"}),
		now:      time.Now,
		locks:    map[string]*sync.Mutex{},
	}
}

// ApplyTurn handles one user message. A message that adds no structured
// information to an already-analyzed profile is a pure follow-up and is
// answered from the stored report without re-running the pipeline. Session
// state is committed only after a successful, non-cancelled run; an aborted
// run leaves the stored session untouched.
func (m *Manager) ApplyTurn(ctx context.Context, sessionID, rawMessage string, emit pipeline.EventSink) (*TurnResult, error) {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	log := m.logger.With(map[string]interface{}{"sessionId": sessionID})

	sess, err := m.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, ErrNotFound):
		sess = &models.Session{ID: sessionID, CreatedAt: m.now().UTC()}
	case err != nil:
		return nil, apperrors.NewSessionStoreFailed(err)
	}

	var prior *models.Profile
	if sess.LatestReport != nil || sess.Profile.FieldCount() > 0 {
		p := sess.Profile
		prior = &p
	}

	merged := normalizer.Normalize(rawMessage, prior)
	if sess.LatestReport != nil && merged.EqualStructured(sess.Profile) {
		log.Info("pure follow-up, answering from stored report", nil)
		metrics.SessionTurns.WithLabelValues("query").Inc()
		return &TurnResult{Session: sess, Report: sess.LatestReport, PipelineRan: false}, nil
	}

	out, err := m.runner.Run(ctx, rawMessage, prior, emit)
	if err != nil {
		// Failed and cancelled runs alike commit nothing.
		log.WithError(err).Warn("run aborted, session unchanged", nil)
		return nil, err
	}

	sess.Commit(out.Profile, out.Report, m.now().UTC())
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, apperrors.NewSessionStoreFailed(err)
	}
	metrics.SessionTurns.WithLabelValues("pipeline").Inc()

	if m.notifier != nil {
		if nerr := m.notifier.NotifyReportReady(ctx, sessionID, out.Report); nerr != nil {
			log.WithError(nerr).Warn("report notification failed", nil)
		}
	}

	return &TurnResult{
		Session:     sess,
		Report:      out.Report,
		RunID:       out.RunID,
		PipelineRan: true,
	}, nil
}

// Latest returns the stored session, if any.
func (m *Manager) Latest(ctx context.Context, sessionID string) (*models.Session, error) {
	return m.store.Load(ctx, sessionID)
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}
