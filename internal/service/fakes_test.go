package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"study_companion_backend/internal/config"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/repository"
	"study_companion_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type memUsers struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]model.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[uint]model.User{}} }

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.Wrapf(gorm.ErrRecordNotFound, "find user %d", id)
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errors.Wrap(gorm.ErrRecordNotFound, "find user by email")
}

func (m *memUsers) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) UpdatePreferences(ctx context.Context, userID uint, prefs model.LearningPreferences, timezone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.Preferences = prefs
	u.Timezone = timezone
	m.users[userID] = u
	return nil
}

func (m *memUsers) TouchLastSeen(ctx context.Context, userID uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.LastSeen = at
	m.users[userID] = u
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[uint]model.StudySession
}

func newMemSessions() *memSessions { return &memSessions{sessions: map[uint]model.StudySession{}} }

func (m *memSessions) Create(ctx context.Context, s *model.StudySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) FindByID(ctx context.Context, id uint) (*model.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrapf(gorm.ErrRecordNotFound, "find session %d", id)
	}
	return &s, nil
}

func (m *memSessions) Save(ctx context.Context, s *model.StudySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) FindOpenByUser(ctx context.Context, userID uint) (*model.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsOpen() {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memSessions) ListByUser(ctx context.Context, userID uint, limit int) ([]model.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StudySession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) CompletedSummary(ctx context.Context, userID uint) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count, millis int64
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == model.SessionCompleted {
			count++
			millis += s.ActiveMillis
		}
	}
	return count, millis / 1000, nil
}

func (m *memSessions) SubjectBreakdown(ctx context.Context, userID uint) ([]model.SubjectStudyTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bySubject := map[string]*model.SubjectStudyTime{}
	for _, s := range m.sessions {
		if s.UserID != userID || s.Status != model.SessionCompleted {
			continue
		}
		row, ok := bySubject[s.Subject]
		if !ok {
			row = &model.SubjectStudyTime{Subject: s.Subject}
			bySubject[s.Subject] = row
		}
		row.Seconds += s.ActiveMillis
		row.Sessions++
	}
	var out []model.SubjectStudyTime
	for _, row := range bySubject {
		row.Seconds /= 1000
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seconds > out[j].Seconds })
	return out, nil
}

type memStreaks struct {
	mu      sync.Mutex
	streaks map[uint]model.LearnerStreak
	saves   int
}

func newMemStreaks() *memStreaks { return &memStreaks{streaks: map[uint]model.LearnerStreak{}} }

func (m *memStreaks) FindByUser(ctx context.Context, userID uint) (*model.LearnerStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streaks[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStreaks) Save(ctx context.Context, s *model.LearnerStreak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.streaks[s.UserID] = *s
	return nil
}

type memQuizzes struct {
	mu      sync.Mutex
	nextID  uint
	quizzes map[uint]model.Quiz
	results map[string]model.QuizResult
}

func newMemQuizzes() *memQuizzes {
	return &memQuizzes{quizzes: map[uint]model.Quiz{}, results: map[string]model.QuizResult{}}
}

func (m *memQuizzes) CreateQuiz(ctx context.Context, q *model.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	for i := range q.Questions {
		q.Questions[i].QuizID = q.ID
	}
	m.quizzes[q.ID] = *q
	return nil
}

func (m *memQuizzes) FindQuizByID(ctx context.Context, id uint) (*model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return nil, errors.Wrapf(gorm.ErrRecordNotFound, "find quiz %d", id)
	}
	return &q, nil
}

func (m *memQuizzes) FindResultByID(ctx context.Context, id string) (*model.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memQuizzes) CreateResult(ctx context.Context, r *model.QuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.ID] = *r
	return nil
}

func (m *memQuizzes) ListResultsByUser(ctx context.Context, userID uint, limit int) ([]model.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.QuizResult
	for _, r := range m.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memQuizzes) ResultSummary(ctx context.Context, userID uint) (repository.QuizSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var summary repository.QuizSummary
	var total int
	for _, r := range m.results {
		if r.UserID != userID {
			continue
		}
		summary.Taken++
		total += r.Score
		if r.IsPerfect() {
			summary.Perfect++
		}
	}
	if summary.Taken > 0 {
		summary.AverageScore = float64(total) / float64(summary.Taken)
	}
	return summary, nil
}

type memFlashcards struct {
	mu        sync.Mutex
	nextID    uint
	cards     map[uint]model.Flashcard
	pageCalls int
}

func newMemFlashcards() *memFlashcards { return &memFlashcards{cards: map[uint]model.Flashcard{}} }

func (m *memFlashcards) Create(ctx context.Context, c *model.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	m.cards[c.ID] = *c
	return nil
}

func (m *memFlashcards) CreateBatch(ctx context.Context, cards []model.Flashcard) error {
	for i := range cards {
		if err := m.Create(ctx, &cards[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memFlashcards) FindByID(ctx context.Context, id uint) (*model.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, errors.Wrapf(gorm.ErrRecordNotFound, "find flashcard %d", id)
	}
	return &c, nil
}

func (m *memFlashcards) Save(ctx context.Context, c *model.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = *c
	return nil
}

func (m *memFlashcards) ListByUser(ctx context.Context, userID uint, topic string, limit int) ([]model.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Flashcard
	for _, c := range m.cards {
		if c.UserID == userID && (topic == "" || c.Topic == topic) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFlashcards) FindDuePage(ctx context.Context, userID uint, now time.Time, after *repository.DueCursor, limit int) ([]model.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageCalls++
	var out []model.Flashcard
	for _, c := range m.cards {
		if c.UserID != userID || c.NextReviewAt.After(now) {
			continue
		}
		if after != nil {
			if c.NextReviewAt.Before(after.NextReviewAt) ||
				(c.NextReviewAt.Equal(after.NextReviewAt) && c.ID <= after.ID) {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextReviewAt.Equal(out[j].NextReviewAt) {
			return out[i].NextReviewAt.Before(out[j].NextReviewAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFlashcards) CountDue(ctx context.Context, userID uint, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.cards {
		if c.UserID == userID && !c.NextReviewAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (m *memFlashcards) SumReviewCount(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.cards {
		if c.UserID == userID {
			n += int64(c.ReviewCount)
		}
	}
	return n, nil
}

type memBadges struct {
	mu       sync.Mutex
	catalog  []model.Badge
	progress map[string]model.LearnerBadgeProgress
	listErr  error
}

func newMemBadges() *memBadges { return &memBadges{progress: map[string]model.LearnerBadgeProgress{}} }

func progressKey(userID uint, code string) string {
	return fmt.Sprintf("%d/%s", userID, code)
}

func (m *memBadges) UpsertCatalog(ctx context.Context, badges []model.Badge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = append([]model.Badge(nil), badges...)
	return nil
}

func (m *memBadges) ListProgress(ctx context.Context, userID uint) ([]model.LearnerBadgeProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.LearnerBadgeProgress
	for _, p := range m.progress {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memBadges) SaveProgress(ctx context.Context, p *model.LearnerBadgeProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[progressKey(p.UserID, p.BadgeCode)] = *p
	return nil
}

func (m *memBadges) CountEarned(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.progress {
		if p.UserID == userID && p.Earned {
			n++
		}
	}
	return n, nil
}

func (m *memBadges) get(userID uint, code string) (model.LearnerBadgeProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressKey(userID, code)]
	return p, ok
}

type memDocuments struct {
	mu     sync.Mutex
	nextID uint
	docs   []model.Document
}

func (m *memDocuments) Create(ctx context.Context, d *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	m.docs = append(m.docs, *d)
	return nil
}

func (m *memDocuments) ListByUser(ctx context.Context, userID uint, limit int) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for i := len(m.docs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.docs[i].UserID == userID {
			out = append(out, m.docs[i])
		}
	}
	return out, nil
}

func (m *memDocuments) CountByUser(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.docs {
		if d.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memDocuments) CountByType(ctx context.Context, userID uint) ([]model.TypeCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, d := range m.docs {
		if d.UserID == userID {
			counts[d.Type]++
		}
	}
	var out []model.TypeCount
	for t, n := range counts {
		out = append(out, model.TypeCount{Type: t, Count: n})
	}
	return out, nil
}

type memChats struct {
	mu       sync.Mutex
	messages []model.ChatMessage
}

func (m *memChats) CreateExchange(ctx context.Context, q, a *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = model.GenerateUUID()
	a.ID = model.GenerateUUID()
	m.messages = append(m.messages, *q, *a)
	return nil
}

func (m *memChats) ListRecent(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatMessage
	for _, msg := range m.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// recordingNotifier 记录收到的通知，err 非空时投递失败
type recordingNotifier struct {
	mu    sync.Mutex
	name  string
	err   error
	notes []model.Notification
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(ctx context.Context, note model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return r.err
}

func (r *recordingNotifier) kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventKind, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Kind)
	}
	return out
}

type testEngine struct {
	clock      *fakeClock
	cfg        *config.Config
	users      *memUsers
	sessions   *memSessions
	streaks    *memStreaks
	quizzes    *memQuizzes
	flashcards *memFlashcards
	badges     *memBadges
	documents  *memDocuments
	chats      *memChats
	notifier   *recordingNotifier
	locks      *LearnerLocks

	streakSvc    *StreakService
	badgeSvc     *BadgeService
	sessionSvc   *SessionService
	quizSvc      *QuizService
	flashcardSvc *FlashcardService
	statsSvc     *StatsService
	ingestSvc    *IngestService
}

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			Timezone:    "UTC",
			DuePageSize: 2,
			Flashcard: config.FlashcardConfig{
				MinDifficulty:    1,
				MaxDifficulty:    5,
				HardDelay:        10 * time.Minute,
				EasyBaseInterval: 24 * time.Hour,
			},
		},
		AI: config.AIConfig{MaxRetries: 2},
	}
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	logger.Log = zap.NewNop()

	e := &testEngine{
		clock:      newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		cfg:        testConfig(),
		users:      newMemUsers(),
		sessions:   newMemSessions(),
		streaks:    newMemStreaks(),
		quizzes:    newMemQuizzes(),
		flashcards: newMemFlashcards(),
		badges:     newMemBadges(),
		documents:  &memDocuments{},
		chats:      &memChats{},
		notifier:   &recordingNotifier{name: "recording"},
		locks:      NewLearnerLocks(),
	}
	dispatcher := NewNotificationDispatcher(time.Second, e.notifier)

	e.streakSvc = NewStreakService(e.streaks, e.users, time.UTC)
	e.badgeSvc = NewBadgeService(
		NewBadgeCatalog(CreateInitialBadges()),
		e.badges,
		&LearnerMetrics{
			Sessions:   e.sessions,
			Streaks:    e.streaks,
			Quizzes:    e.quizzes,
			Flashcards: e.flashcards,
			Documents:  e.documents,
		},
		e.locks,
		dispatcher,
	)
	e.badgeSvc.now = e.clock.Now

	e.sessionSvc = NewSessionService(e.sessions, e.streakSvc, e.badgeSvc, e.locks, dispatcher)
	e.sessionSvc.now = e.clock.Now

	e.quizSvc = NewQuizService(e.quizzes, e.badgeSvc, e.locks, dispatcher)
	e.quizSvc.now = e.clock.Now

	e.flashcardSvc = NewFlashcardService(e.flashcards, e.badgeSvc, e.locks, dispatcher, nil, e.cfg)
	e.flashcardSvc.Retry.Delay = time.Millisecond
	e.flashcardSvc.now = e.clock.Now

	e.statsSvc = NewStatsService(e.sessions, e.streaks, e.quizzes, e.flashcards, e.badges, e.documents)
	e.statsSvc.now = e.clock.Now

	e.ingestSvc = NewIngestService(e.sessionSvc, e.quizSvc, e.flashcardSvc)
	e.ingestSvc.now = e.clock.Now
	return e
}

// studyAt 在指定时间开始一次学习并在 minutes 分钟后完成
func (e *testEngine) studyAt(t *testing.T, learnerID uint, at time.Time, minutes int) *CompletionResult {
	t.Helper()
	e.clock.Set(at)
	view, err := e.sessionSvc.StartSession(context.Background(), learnerID, "algebra")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	e.clock.Advance(time.Duration(minutes) * time.Minute)
	result, err := e.sessionSvc.CompleteSession(context.Background(), learnerID, view.ID)
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	return result
}
