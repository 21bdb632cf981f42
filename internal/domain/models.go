package domain

import "time"

// Quiz publication statuses. Only public quizzes may be attempted by non-owners.
const (
	StatusDraft   = "draft"
	StatusPrivate = "private"
	StatusPublic  = "public"
)

// OptionKeys is the fixed option-key set every question carries.
var OptionKeys = []string{"A", "B", "C", "D"}

// PromptAnalysis is the structured-parameter tuple inferred from a free-text
// prompt; it drives the second generation step.
type PromptAnalysis struct {
	Topic         string `json:"topic"`
	Language      string `json:"language"`
	QuestionCount int    `json:"questionCount"`
	Difficulty    string `json:"difficulty"`
}

// Question models an MCQ question with exactly one correct option.
// Options are keyed A-D; CorrectAnswer is one of those keys.
type Question struct {
	ID            string            `json:"id"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation"`
}

// Quiz is an ordered collection of questions owned by the user that created it.
// Question order is meaningful: numbering and navigation depend on it.
type Quiz struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	Status      string     `json:"status,omitempty"`
	LimitTime   *int       `json:"limitTime"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
	UserID      string     `json:"userId,omitempty"`
}

// Result captures the scored outcome of one exam attempt. QuizData is a
// snapshot, not a live reference: later edits to the quiz must not alter it.
type Result struct {
	Score          int               `json:"score"`
	CorrectAnswers int               `json:"correctAnswers"`
	TotalQuestions int               `json:"totalQuestions"`
	UserAnswers    map[string]string `json:"userAnswers"`
	QuizData       Quiz              `json:"quizData"`
}

// Submission is an immutable record of one attempt at one quiz.
type Submission struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	QuizRef     string    `json:"quizRef"`
	Result      Result    `json:"result"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Clone returns a deep, independent copy of the quiz. No structural sharing:
// mutating the clone's options must never reach the original.
func (q Quiz) Clone() Quiz {
	out := q
	if q.LimitTime != nil {
		limit := *q.LimitTime
		out.LimitTime = &limit
	}
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question.Clone()
	}
	return out
}

// Clone returns a deep copy of the question including its options map.
func (q Question) Clone() Question {
	out := q
	out.Options = make(map[string]string, len(q.Options))
	for key, text := range q.Options {
		out.Options[key] = text
	}
	return out
}

// HasQuestion reports whether the quiz contains a question with the given ID.
func (q Quiz) HasQuestion(id string) bool {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return true
		}
	}
	return false
}
