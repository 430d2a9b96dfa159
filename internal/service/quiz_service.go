package service

import (
	"context"
	"math"
	"strings"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"
	"study_companion_backend/pkg/logger"
	"study_companion_backend/pkg/monitoring"
	"study_companion_backend/pkg/tracing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type QuizService struct {
	Quizzes    QuizStore
	Badges     *BadgeService
	Locks      *LearnerLocks
	Dispatcher *NotificationDispatcher
	now        Clock
}

func NewQuizService(quizzes QuizStore, badges *BadgeService, locks *LearnerLocks, dispatcher *NotificationDispatcher) *QuizService {
	return &QuizService{
		Quizzes:    quizzes,
		Badges:     badges,
		Locks:      locks,
		Dispatcher: dispatcher,
		now:        time.Now,
	}
}

type QuestionInput struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectAnswer string   `json:"correctAnswer" binding:"required"`
	Explanation   string   `json:"explanation"`
}

type CreateQuizRequest struct {
	Subject    string          `json:"subject" binding:"required"`
	Difficulty int             `json:"difficulty" binding:"omitempty,min=1,max=5"`
	Questions  []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}

type AnswerInput struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      string `json:"selected"`
}

type SubmitQuizRequest struct {
	AttemptID string        `json:"attemptId"`
	Answers   []AnswerInput `json:"answers"`
}

// Recommendation 答错题目的讲解
type Recommendation struct {
	QuestionIndex int    `json:"questionIndex"`
	Question      string `json:"question"`
	Explanation   string `json:"explanation"`
}

type QuizSubmission struct {
	Result          model.QuizResult `json:"result"`
	Recommendations []Recommendation `json:"recommendations"`
	EarnedBadges    []model.Badge    `json:"earnedBadges"`
	Replayed        bool             `json:"replayed"`
}

// canonical 答案比较前的规范化：去首尾空白、折叠内部空白、忽略大小写
func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (s *QuizService) CreateQuiz(ctx context.Context, learnerID uint, req CreateQuizRequest) (*model.Quiz, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, errors.Wrap(util.ErrValidation, "subject is required")
	}
	if len(req.Questions) == 0 {
		return nil, errors.Wrap(util.ErrValidation, "a quiz needs at least one question")
	}

	quiz := &model.Quiz{
		UserID:     learnerID,
		Subject:    subject,
		Difficulty: max(req.Difficulty, 1),
	}
	for i, q := range req.Questions {
		question, err := buildQuestion(i, q)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.Quizzes.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func buildQuestion(position int, q QuestionInput) (model.QuizQuestion, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return model.QuizQuestion{}, errors.Wrapf(util.ErrValidation, "question %d has no text", position)
	}

	seen := make(map[string]bool, len(q.Options))
	options := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		opt = strings.TrimSpace(opt)
		key := canonical(opt)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		options = append(options, opt)
	}
	if len(options) < 2 {
		return model.QuizQuestion{}, errors.Wrapf(util.ErrValidation, "question %d needs at least two distinct options", position)
	}

	var correct string
	for _, opt := range options {
		if canonical(opt) == canonical(q.CorrectAnswer) {
			correct = opt
			break
		}
	}
	if correct == "" {
		return model.QuizQuestion{}, errors.Wrapf(util.ErrValidation, "question %d: correct answer is not one of the options", position)
	}

	return model.QuizQuestion{
		Position:      position,
		Text:          text,
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   strings.TrimSpace(q.Explanation),
	}, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, learnerID, quizID uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindQuizByID(ctx, quizID)
	if err != nil {
		return nil, translateNotFound(err, "quiz %d", quizID)
	}
	if quiz.UserID != learnerID {
		return nil, errors.Wrapf(util.ErrNotFound, "quiz %d", quizID)
	}
	return quiz, nil
}

// SubmitQuiz 评分并保存结果。相同 AttemptID 的重复提交返回已保存的结果。
func (s *QuizService) SubmitQuiz(ctx context.Context, learnerID, quizID uint, req SubmitQuizRequest) (*QuizSubmission, error) {
	quiz, err := s.GetQuiz(ctx, learnerID, quizID)
	if err != nil {
		return nil, err
	}

	attemptID := strings.TrimSpace(req.AttemptID)
	if attemptID == "" {
		attemptID = uuid.New().String()
	} else if _, err := uuid.Parse(attemptID); err != nil {
		return nil, errors.Wrapf(util.ErrValidation, "attempt id %q is not a UUID", attemptID)
	}

	selected, err := indexAnswers(req.Answers, len(quiz.Questions))
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "quiz.submit",
		attribute.Int64("learner.id", int64(learnerID)),
		attribute.Int64("quiz.id", int64(quizID)),
		attribute.String("quiz.attempt", attemptID),
	)
	defer span.End()

	submission, notes, err := s.submitLocked(ctx, quiz, learnerID, attemptID, selected)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !submission.Replayed {
		monitoring.QuizResults.Inc()
		s.Dispatcher.Dispatch(ctx, notes...)
	}
	return submission, nil
}

func (s *QuizService) submitLocked(ctx context.Context, quiz *model.Quiz, learnerID uint, attemptID string, selected map[int]string) (*QuizSubmission, []model.Notification, error) {
	unlock := s.Locks.Lock(learnerID, ScopeProgress)
	defer unlock()

	existing, err := s.Quizzes.FindResultByID(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		if existing.UserID != learnerID || existing.QuizID != quiz.ID {
			return nil, nil, errors.Wrapf(util.ErrNotFound, "attempt %s", attemptID)
		}
		return &QuizSubmission{
			Result:          *existing,
			Recommendations: recommendationsFor(quiz, existing.Answers),
			Replayed:        true,
		}, nil, nil
	}

	result := scoreQuiz(quiz, selected)
	result.ID = attemptID
	result.UserID = learnerID
	result.CompletedAt = s.now()
	if err := s.Quizzes.CreateResult(ctx, result); err != nil {
		return nil, nil, err
	}

	// 结果已落库，徽章评估失败只记录日志，可通过重新评估补齐
	earned, err := s.Badges.evaluateLocked(ctx, learnerID, model.EventQuizScored)
	if err != nil {
		logger.Log.Error("Failed to evaluate badges",
			zap.Uint("learnerID", learnerID),
			zap.String("resultID", result.ID),
			zap.Error(err),
		)
	}

	notes := []model.Notification{{
		UserID:     learnerID,
		Kind:       model.EventQuizScored,
		OccurredAt: result.CompletedAt,
		Data: map[string]interface{}{
			"quizId":   quiz.ID,
			"resultId": result.ID,
			"score":    result.Score,
		},
	}}
	notes = append(notes, s.Badges.earnedNotifications(learnerID, earned)...)

	return &QuizSubmission{
		Result:          *result,
		Recommendations: recommendationsFor(quiz, result.Answers),
		EarnedBadges:    earned,
	}, notes, nil
}

// indexAnswers 校验题号范围和重复作答
func indexAnswers(answers []AnswerInput, total int) (map[int]string, error) {
	if len(answers) == 0 {
		return nil, errors.Wrap(util.ErrValidation, "answers are required")
	}
	selected := make(map[int]string, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= total {
			return nil, errors.Wrapf(util.ErrValidation, "question index %d out of range", a.QuestionIndex)
		}
		if _, dup := selected[a.QuestionIndex]; dup {
			return nil, errors.Wrapf(util.ErrValidation, "question %d answered twice", a.QuestionIndex)
		}
		selected[a.QuestionIndex] = a.Selected
	}
	return selected, nil
}

// scoreQuiz 未作答的题目计为答错
func scoreQuiz(quiz *model.Quiz, selected map[int]string) *model.QuizResult {
	result := &model.QuizResult{
		QuizID:         quiz.ID,
		Subject:        quiz.Subject,
		TotalQuestions: len(quiz.Questions),
		Answers:        make([]model.AnswerRecord, 0, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		answer := selected[i]
		correct := answer != "" && canonical(answer) == canonical(q.CorrectAnswer)
		if correct {
			result.CorrectCount++
		}
		result.Answers = append(result.Answers, model.AnswerRecord{
			QuestionIndex: i,
			Selected:      answer,
			Correct:       correct,
		})
	}
	if result.TotalQuestions > 0 {
		result.Score = int(math.Round(100 * float64(result.CorrectCount) / float64(result.TotalQuestions)))
	}
	return result
}

func recommendationsFor(quiz *model.Quiz, answers []model.AnswerRecord) []Recommendation {
	recs := make([]Recommendation, 0)
	for _, a := range answers {
		if a.Correct || a.QuestionIndex < 0 || a.QuestionIndex >= len(quiz.Questions) {
			continue
		}
		q := quiz.Questions[a.QuestionIndex]
		recs = append(recs, Recommendation{
			QuestionIndex: a.QuestionIndex,
			Question:      q.Text,
			Explanation:   q.Explanation,
		})
	}
	return recs
}

func (s *QuizService) ListResults(ctx context.Context, learnerID uint, limit int) ([]model.QuizResult, error) {
	return s.Quizzes.ListResultsByUser(ctx, learnerID, limit)
}
