package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizzz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore persists quizzes and submissions as JSONB documents, with the
// ownership and timestamp columns lifted out for filtering.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	data, err := json.Marshal(quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, user_id, data, created_at) VALUES ($1, $2, $3, $4)`,
		quiz.ID, quiz.UserID, data, quiz.CreatedAt)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: insert quiz: %v", domain.ErrUpstream, err)
	}
	return quiz, nil
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load quiz: %v", domain.ErrUpstream, err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET data=$2 WHERE id=$1`, quiz.ID, data)
	if err != nil {
		return fmt.Errorf("%w: update quiz: %v", domain.ErrUpstream, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("%w: delete quiz: %v", domain.ErrUpstream, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) ListQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM quizzes WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list quizzes: %v", domain.ErrUpstream, err)
	}
	defer rows.Close()

	out := []domain.Quiz{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan quiz: %v", domain.ErrUpstream, err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *QuizStore) CreateSubmission(ctx context.Context, submission domain.Submission) error {
	data, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO submissions (id, quiz_id, user_id, data, submitted_at) VALUES ($1, $2, $3, $4, $5)`,
		submission.ID, submission.QuizID, submission.UserID, data, submission.SubmittedAt)
	if err != nil {
		return fmt.Errorf("%w: insert submission: %v", domain.ErrUpstream, err)
	}
	return nil
}

func (s *QuizStore) GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM submissions WHERE id=$1`, submissionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%w: load submission: %v", domain.ErrUpstream, err)
	}
	var submission domain.Submission
	if err := json.Unmarshal(raw, &submission); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal submission: %w", err)
	}
	return submission, nil
}

func (s *QuizStore) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.listSubmissions(ctx, `SELECT data FROM submissions WHERE user_id=$1 ORDER BY submitted_at DESC`, userID)
}

func (s *QuizStore) ListSubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.listSubmissions(ctx, `SELECT data FROM submissions WHERE quiz_id=$1 ORDER BY submitted_at DESC`, quizID)
}

func (s *QuizStore) listSubmissions(ctx context.Context, query, arg string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%w: list submissions: %v", domain.ErrUpstream, err)
	}
	defer rows.Close()

	out := []domain.Submission{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan submission: %v", domain.ErrUpstream, err)
		}
		var submission domain.Submission
		if err := json.Unmarshal(raw, &submission); err != nil {
			return nil, fmt.Errorf("unmarshal submission: %w", err)
		}
		out = append(out, submission)
	}
	return out, rows.Err()
}

// LoadQuiz lets the store back the cache layer directly.
func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.GetQuiz(ctx, quizID)
}
