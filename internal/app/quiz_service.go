package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"quizzz-service/internal/domain"
	"github.com/google/uuid"
)

// DraftRepository abstracts how per-owner drafts are stored (in-memory, Redis-marked, etc).
type DraftRepository interface {
	GetOrCreate(ownerID string) *Draft
	Get(ownerID string) (*Draft, bool)
	Delete(ownerID string)
}

// QuizReader serves quiz reads, typically through a cache layer.
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizStore persists quizzes and submissions.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ListQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error)
	CreateSubmission(ctx context.Context, submission domain.Submission) error
	GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error)
	ListSubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
}

// CacheInvalidator is implemented by read caches that need explicit
// invalidation after writes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, quizID string)
}

// QuizService contains the persisted-quiz and submission use cases.
type QuizService struct {
	drafts DraftRepository
	reader QuizReader
	store  QuizStore
	now    func() time.Time
}

func NewQuizService(drafts DraftRepository, reader QuizReader, store QuizStore) *QuizService {
	return &QuizService{drafts: drafts, reader: reader, store: store, now: time.Now}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(drafts DraftRepository, reader QuizReader, store QuizStore, now func() time.Time) *QuizService {
	return &QuizService{drafts: drafts, reader: reader, store: store, now: now}
}

// Drafts exposes the draft repository for transports.
func (s *QuizService) Drafts() DraftRepository { return s.drafts }

// SaveQuiz persists a quiz for its owner. A new quiz gets a generated ID and a
// createdAt set exactly once; an existing ID is updated in place (last write
// wins, no optimistic-concurrency check). Persistence failures propagate so
// callers never silently discard unsaved edits.
func (s *QuizService) SaveQuiz(ctx context.Context, userID string, quiz domain.Quiz) (domain.Quiz, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Quiz{}, fmt.Errorf("%w: user id required", domain.ErrValidation)
	}
	quiz.UserID = userID
	if quiz.Status == "" {
		quiz.Status = domain.StatusDraft
	}

	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
		quiz.CreatedAt = s.now()
		created, err := s.store.CreateQuiz(ctx, quiz)
		if err != nil {
			return domain.Quiz{}, err
		}
		return created, nil
	}

	existing, err := s.store.GetQuiz(ctx, quiz.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quiz.ID)
	return quiz, nil
}

// GetQuiz fetches a quiz by ID through the read cache.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" {
		return domain.Quiz{}, fmt.Errorf("%w: quiz id required", domain.ErrValidation)
	}
	return s.reader.GetQuiz(ctx, quizID)
}

// UpdateQuiz overwrites a quiz in place and invalidates its cache entry.
func (s *QuizService) UpdateQuiz(ctx context.Context, userID string, quiz domain.Quiz) error {
	if quiz.ID == "" {
		return fmt.Errorf("%w: quiz id required", domain.ErrValidation)
	}
	existing, err := s.store.GetQuiz(ctx, quiz.ID)
	if err != nil {
		return err
	}
	quiz.UserID = existing.UserID
	quiz.CreatedAt = existing.CreatedAt
	if quiz.Status == "" {
		quiz.Status = existing.Status
	}
	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return err
	}
	s.invalidate(ctx, quiz.ID)
	return nil
}

// DeleteQuiz removes a quiz and invalidates its cache entry.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string) error {
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// ListQuizzesByUser returns the quizzes owned by a user, newest first.
func (s *QuizService) ListQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error) {
	return s.store.ListQuizzesByUser(ctx, userID)
}

// Submit scores a completed attempt and persists an immutable submission.
// The quiz reference and the result are written in a single store call, so a
// reader never observes a submission without its quizRef. The embedded quiz
// snapshot is deep-copied: later edits to the live quiz do not alter it.
func (s *QuizService) Submit(ctx context.Context, quizID, userID string, answers map[string]string) (domain.Submission, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Submission{}, fmt.Errorf("%w: user id required", domain.ErrValidation)
	}
	quiz, err := s.reader.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Submission{}, err
	}
	if quiz.Status != domain.StatusPublic && quiz.UserID != userID {
		return domain.Submission{}, domain.ErrQuizNotPublic
	}

	if answers == nil {
		answers = map[string]string{}
	}
	submission := domain.Submission{
		ID:          uuid.NewString(),
		UserID:      userID,
		QuizID:      quizID,
		QuizRef:     "quizzes/" + quizID,
		Result:      scoreAttempt(quiz, answers),
		SubmittedAt: s.now(),
	}
	if err := s.store.CreateSubmission(ctx, submission); err != nil {
		return domain.Submission{}, err
	}
	return submission, nil
}

// GetSubmission fetches a submission by ID.
func (s *QuizService) GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	return s.store.GetSubmission(ctx, submissionID)
}

// ListSubmissionsByUser returns a user's submissions, newest first.
func (s *QuizService) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.store.ListSubmissionsByUser(ctx, userID)
}

// ListSubmissionsByQuiz returns a quiz's submissions, newest first.
func (s *QuizService) ListSubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.store.ListSubmissionsByQuiz(ctx, quizID)
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if inv, ok := s.reader.(CacheInvalidator); ok {
		inv.Invalidate(ctx, quizID)
	}
}

// scoreAttempt computes the result for one attempt. An answer counts when it
// matches the question's correct key exactly; an empty quiz scores zero
// rather than dividing by zero.
func scoreAttempt(quiz domain.Quiz, answers map[string]string) domain.Result {
	total := len(quiz.Questions)
	correct := 0
	for _, q := range quiz.Questions {
		if answers[q.ID] == q.CorrectAnswer {
			correct++
		}
	}
	score := 0
	if total > 0 {
		score = int(math.Round(100 * float64(correct) / float64(total)))
	}

	userAnswers := make(map[string]string, len(answers))
	for id, key := range answers {
		userAnswers[id] = key
	}
	return domain.Result{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		UserAnswers:    userAnswers,
		QuizData:       quiz.Clone(),
	}
}
