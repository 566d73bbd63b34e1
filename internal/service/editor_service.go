package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quizsmith/quizsmith-backend/internal/autosave"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Editor errors.
var (
	ErrPageLocked   = errors.New("page is locked by another editor session")
	ErrPageArchived = errors.New("archived pages cannot be edited")
)

// EditorEventKind labels push events flowing from a session to its client.
type EditorEventKind string

const (
	EditorEventDirtyChanged  EditorEventKind = "dirty_changed"
	EditorEventSaveCommitted EditorEventKind = "save_committed"
	EditorEventSaveFailed    EditorEventKind = "save_failed"
)

// EditorEvent is one push notification from a live session.
type EditorEvent struct {
	Kind    EditorEventKind
	Dirty   bool
	Trigger model.RevisionTrigger
	At      time.Time
}

// EditorDraft is the full editable state of a session, sent to the
// client when the session opens.
type EditorDraft struct {
	PageID    uuid.UUID           `json:"page_id"`
	Fields    map[string]string   `json:"fields"`
	Questions []autosave.Question `json:"questions"`
	ImageURL  string              `json:"image_url,omitempty"`
	ImageID   string              `json:"image_id,omitempty"`
	Dirty     bool                `json:"dirty"`
	State     string              `json:"state"`
}

// EditorSession is one author's live editing session on one page. All
// edits funnel through the change tracker; the idle scheduler decides
// when the consolidated snapshot is queued for persistence.
type EditorSession struct {
	PageID   uuid.UUID
	AuthorID int

	svc       *EditorService
	tracker   *autosave.Tracker
	sched     *autosave.Scheduler
	lockValue string
	events    chan EditorEvent
	flushing  atomic.Bool
	cancel    context.CancelFunc
	closeOnce sync.Once
	log       zerolog.Logger
}

// EditorService owns the registry of live editing sessions and the
// per-page Redis locks that keep each page single-writer.
type EditorService struct {
	cfg          *config.Config
	pageRepo     *repository.PageRepository
	questionRepo *repository.QuestionRepository
	settingRepo  *repository.SettingRepository
	activity     *ActivityService
	rdb          *redis.Client
	log          zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*EditorSession
}

// NewEditorService creates a new EditorService.
func NewEditorService(
	cfg *config.Config,
	pageRepo *repository.PageRepository,
	questionRepo *repository.QuestionRepository,
	settingRepo *repository.SettingRepository,
	activity *ActivityService,
	rdb *redis.Client,
	log zerolog.Logger,
) *EditorService {
	return &EditorService{
		cfg:          cfg,
		pageRepo:     pageRepo,
		questionRepo: questionRepo,
		settingRepo:  settingRepo,
		activity:     activity,
		rdb:          rdb,
		log:          log.With().Str("component", "editor_service").Logger(),
		sessions:     make(map[uuid.UUID]*EditorSession),
	}
}

// Open starts an editing session: acquires the page lock, loads the
// draft, and hydrates the tracker while the scheduler is still inside
// its initial-load window so hydration never counts as an edit.
func (s *EditorService) Open(ctx context.Context, pageID uuid.UUID, authorID int) (*EditorSession, error) {
	page, err := s.pageRepo.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	if page.AuthorID != authorID {
		return nil, ErrNotPageAuthor
	}
	if page.Status == model.PageStatusArchived {
		return nil, ErrPageArchived
	}

	questions, err := s.questionRepo.ListByPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	lockKey := config.CacheKey.PageLockKey(pageID.String())
	lockValue := uuid.New().String()
	acquired, err := s.rdb.SetNX(ctx, lockKey, lockValue, s.cfg.EditorLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire page lock: %w", err)
	}
	if !acquired {
		return nil, ErrPageLocked
	}

	sessLog := s.log.With().
		Str("page_id", pageID.String()).
		Int("author_id", authorID).
		Logger()

	sess := &EditorSession{
		PageID:    pageID,
		AuthorID:  authorID,
		svc:       s,
		lockValue: lockValue,
		events:    make(chan EditorEvent, 16),
		log:       sessLog,
	}

	sess.tracker = autosave.NewTracker(sessLog)
	sess.sched = autosave.NewScheduler(s.autosaveConfig(ctx), sess.tracker.BuildSnapshot, sess.commitSnapshot, sessLog)
	sess.sched.OnDirtyChange(func(dirty bool) {
		sess.emit(EditorEvent{Kind: EditorEventDirtyChanged, Dirty: dirty, At: time.Now()})
		go sess.mirrorDirty(dirty)
	})
	sess.tracker.Attach(sess.sched)

	// Hydrate through the normal mutators. The scheduler drops these
	// notifications while its initial-load window is open.
	sess.tracker.SetField("title", page.Title)
	sess.tracker.SetField("summary", page.Summary)
	sess.tracker.SetField("body", page.Body)
	if len(questions) > 0 {
		sess.tracker.ReplaceQuestions(toEditorQuestions(questions))
	}
	if page.CoverImageURL != "" {
		sess.tracker.SetImage(page.CoverImageURL, page.CoverImageID)
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	go sess.refreshLock(refreshCtx)

	s.mu.Lock()
	s.sessions[pageID] = sess
	s.mu.Unlock()

	s.activity.Emit(ctx, model.ActivityEditorOpened, &pageID, &authorID, nil)
	sessLog.Info().Msg("Editor session opened")
	return sess, nil
}

// Count returns the number of live sessions in this process.
func (s *EditorService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseAll flushes and closes every live session. Called on shutdown.
func (s *EditorService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	open := make([]*EditorSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.Close(ctx)
	}
	if len(open) > 0 {
		s.log.Info().Int("count", len(open)).Msg("Closed all editor sessions")
	}
}

// autosaveConfig resolves the debounce windows, letting app settings
// override the environment defaults per deployment. Read fresh on
// every session open so a changed setting applies to the next editor
// without a restart.
func (s *EditorService) autosaveConfig(ctx context.Context) autosave.Config {
	cfg := autosave.Config{
		IdleWindow:       s.cfg.AutosaveIdleWindow,
		InitialLoadDelay: s.cfg.AutosaveInitialLoad,
	}

	overrides, err := s.settingRepo.Values(ctx, model.SettingKeyIdleWindowMS, model.SettingKeyInitialLoadMS)
	if err != nil {
		s.log.Warn().Err(err).Msg("Could not load autosave settings, using defaults")
		return cfg
	}
	if d := parseWindowMS(overrides[model.SettingKeyIdleWindowMS]); d > 0 {
		cfg.IdleWindow = d
	}
	if d := parseWindowMS(overrides[model.SettingKeyInitialLoadMS]); d > 0 {
		cfg.InitialLoadDelay = d
	}
	return cfg
}

func parseWindowMS(value string) time.Duration {
	ms, err := strconv.Atoi(value)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *EditorService) release(ctx context.Context, sess *EditorSession) {
	s.mu.Lock()
	if s.sessions[sess.PageID] == sess {
		delete(s.sessions, sess.PageID)
	}
	s.mu.Unlock()

	pageID := sess.PageID.String()
	if err := s.rdb.Del(ctx, config.CacheKey.PageDirtyKey(pageID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("page_id", pageID).Msg("Clear dirty mirror failed")
	}

	// Only the holder may release; a different value means the TTL
	// already rotated the lock to someone else.
	lockKey := config.CacheKey.PageLockKey(pageID)
	val, err := s.rdb.Get(ctx, lockKey).Result()
	if err == nil && val == sess.lockValue {
		if err := s.rdb.Del(ctx, lockKey).Err(); err != nil {
			s.log.Warn().Err(err).Str("page_id", pageID).Msg("Release page lock failed")
		}
	}

	s.activity.Emit(ctx, model.ActivityEditorClosed, &sess.PageID, &sess.AuthorID, nil)
	sess.log.Info().Msg("Editor session closed")
}

func toEditorQuestions(qs []model.Question) []autosave.Question {
	out := make([]autosave.Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, autosave.Question{
			Prompt:        q.Prompt,
			Kind:          autosave.AnswerKind(q.Kind),
			CorrectAnswer: q.CorrectAnswer,
			Options:       q.Options,
		})
	}
	return out
}

// ─── Session methods ─────────────────────────────────────────────────

// SetField records a scalar field edit.
func (sess *EditorSession) SetField(name, value string) {
	sess.tracker.SetField(name, value)
}

// ReplaceQuestions swaps the whole question list.
func (sess *EditorSession) ReplaceQuestions(qs []autosave.Question) {
	sess.tracker.ReplaceQuestions(qs)
}

// EditOption renames one option of one question.
func (sess *EditorSession) EditOption(qIdx, optIdx int, text string) error {
	return sess.tracker.EditOption(qIdx, optIdx, text)
}

// RemoveOption deletes one option of one question.
func (sess *EditorSession) RemoveOption(qIdx, optIdx int) error {
	return sess.tracker.RemoveOption(qIdx, optIdx)
}

// SetCover records the cover image pair.
func (sess *EditorSession) SetCover(url, id string) {
	sess.tracker.SetImage(url, id)
}

// ClearCover removes the cover image.
func (sess *EditorSession) ClearCover() {
	sess.tracker.ClearImage()
}

// Flush forces any pending snapshot out immediately.
func (sess *EditorSession) Flush() {
	sess.flushing.Store(true)
	sess.sched.Flush()
	sess.flushing.Store(false)
}

// Dirty reports whether unsaved changes are pending.
func (sess *EditorSession) Dirty() bool {
	return sess.sched.HasUnsavedChanges()
}

// StateName returns the scheduler state for diagnostics.
func (sess *EditorSession) StateName() string {
	return sess.sched.State().String()
}

// Events returns the push notification stream for this session.
func (sess *EditorSession) Events() <-chan EditorEvent {
	return sess.events
}

// Draft returns the current editable state for session bootstrap.
func (sess *EditorSession) Draft() EditorDraft {
	url, id := sess.tracker.Image()
	return EditorDraft{
		PageID:    sess.PageID,
		Fields:    sess.tracker.Fields(),
		Questions: sess.tracker.Questions(),
		ImageURL:  url,
		ImageID:   id,
		Dirty:     sess.sched.HasUnsavedChanges(),
		State:     sess.sched.State().String(),
	}
}

// Close flushes pending changes, stops the scheduler, and releases the
// page lock. Safe to call more than once. Unlike the explicit flush
// action, a clean close commits nothing.
func (sess *EditorSession) Close(ctx context.Context) {
	sess.closeOnce.Do(func() {
		if sess.sched.HasUnsavedChanges() {
			sess.Flush()
		}
		sess.sched.Teardown()
		sess.cancel()
		sess.svc.release(ctx, sess)
	})
}

// commitSnapshot is the scheduler's sink: it queues the snapshot for
// the persistence worker. Runs on the scheduler's commit goroutine.
func (sess *EditorSession) commitSnapshot(snap *autosave.Snapshot) error {
	ctx := context.Background()

	trigger := model.RevisionTriggerIdle
	if sess.flushing.Load() {
		trigger = model.RevisionTriggerFlush
	}

	payload, err := json.Marshal(map[string]interface{}{
		"page_id":   sess.PageID.String(),
		"author_id": sess.AuthorID,
		"trigger":   trigger,
		"snapshot":  snap,
		"queued_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot job: %w", err)
	}

	if err := sess.svc.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, payload).Err(); err != nil {
		sess.emit(EditorEvent{Kind: EditorEventSaveFailed, Trigger: trigger, At: time.Now()})
		return fmt.Errorf("enqueue snapshot: %w", err)
	}

	sess.emit(EditorEvent{Kind: EditorEventSaveCommitted, Trigger: trigger, At: time.Now()})
	return nil
}

// emit pushes an event without blocking; a slow client loses push
// notifications, never edits.
func (sess *EditorSession) emit(ev EditorEvent) {
	select {
	case sess.events <- ev:
	default:
		sess.log.Debug().Str("kind", string(ev.Kind)).Msg("Event dropped, client lagging")
	}
}

// mirrorDirty keeps the page's unsaved-changes flag visible outside the
// process. The TTL clears a stale flag if this process dies.
func (sess *EditorSession) mirrorDirty(dirty bool) {
	ctx := context.Background()
	key := config.CacheKey.PageDirtyKey(sess.PageID.String())
	var err error
	if dirty {
		err = sess.svc.rdb.Set(ctx, key, "1", sess.svc.cfg.EditorLockTTL).Err()
	} else {
		err = sess.svc.rdb.Del(ctx, key).Err()
	}
	if err != nil {
		sess.log.Warn().Err(err).Msg("Dirty mirror update failed")
	}
}

// refreshLock extends the page lock while the session lives.
func (sess *EditorSession) refreshLock(ctx context.Context) {
	ttl := sess.svc.cfg.EditorLockTTL
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	lockKey := config.CacheKey.PageLockKey(sess.PageID.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			val, err := sess.svc.rdb.Get(ctx, lockKey).Result()
			if err != nil || val != sess.lockValue {
				sess.log.Warn().Msg("Page lock no longer held, stopping refresh")
				return
			}
			if err := sess.svc.rdb.Expire(ctx, lockKey, ttl).Err(); err != nil {
				sess.log.Warn().Err(err).Msg("Lock refresh failed")
			}
		}
	}
}
