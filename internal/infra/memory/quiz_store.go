package memory

import (
	"context"
	"sort"
	"sync"

	"quizzz-service/internal/domain"
)

// QuizStore is a map-backed implementation of app.QuizStore, used in tests
// and no-infrastructure runs.
type QuizStore struct {
	mu          sync.RWMutex
	quizzes     map[string]domain.Quiz
	submissions map[string]domain.Submission
}

func NewQuizStore() *QuizStore {
	return &QuizStore{
		quizzes:     make(map[string]domain.Quiz),
		submissions: make(map[string]domain.Submission),
	}
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz.Clone()
	return quiz, nil
}

func (s *QuizStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz.Clone(), nil
}

func (s *QuizStore) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = quiz.Clone()
	return nil
}

func (s *QuizStore) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *QuizStore) ListQuizzesByUser(_ context.Context, userID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Quiz{}
	for _, quiz := range s.quizzes {
		if quiz.UserID == userID {
			out = append(out, quiz.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *QuizStore) CreateSubmission(_ context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[submission.ID] = submission
	return nil
}

func (s *QuizStore) GetSubmission(_ context.Context, submissionID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submission, ok := s.submissions[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return submission, nil
}

func (s *QuizStore) ListSubmissionsByUser(_ context.Context, userID string) ([]domain.Submission, error) {
	return s.listSubmissions(func(sub domain.Submission) bool { return sub.UserID == userID })
}

func (s *QuizStore) ListSubmissionsByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	return s.listSubmissions(func(sub domain.Submission) bool { return sub.QuizID == quizID })
}

func (s *QuizStore) listSubmissions(match func(domain.Submission) bool) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Submission{}
	for _, submission := range s.submissions {
		if match(submission) {
			out = append(out, submission)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

// LoadQuiz lets the store double as a cache loader.
func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.GetQuiz(ctx, quizID)
}
