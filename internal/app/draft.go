package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"quizzz-service/internal/ai"
	"quizzz-service/internal/domain"
)

// Draft generation states.
const (
	DraftIdle       = "idle"
	DraftGenerating = "generating"
	DraftReady      = "ready"
	DraftError      = "error"
)

// QuizGenerator produces a quiz draft from a raw prompt (the two-stage AI pipeline).
type QuizGenerator interface {
	GenerateFromPrompt(ctx context.Context, prompt string) (domain.Quiz, error)
}

// Draft holds one owner's in-progress quiz: generation status, the committed
// draft, the edit-mode shadow copy, and exam progress. The draft is
// single-writer by design; the mutex only protects against the generation
// goroutine and subscribers racing the editor.
type Draft struct {
	id string

	mu            sync.RWMutex
	state         string
	prompt        string
	errMsg        string
	quiz          *domain.Quiz
	edited        *domain.Quiz
	editMode      bool
	userAnswers   map[string]string
	currentIndex  int
	quizCompleted bool
	subscribers   map[chan DraftView]struct{}
}

// DraftView is a consistent snapshot of the draft for transports and tests.
type DraftView struct {
	Owner           string            `json:"owner,omitempty"`
	State           string            `json:"state"`
	Prompt          string            `json:"prompt"`
	Error           string            `json:"error,omitempty"`
	Quiz            *domain.Quiz      `json:"quiz,omitempty"`
	EditMode        bool              `json:"editMode"`
	EditedQuiz      *domain.Quiz      `json:"editedQuiz,omitempty"`
	UserAnswers     map[string]string `json:"userAnswers"`
	CurrentQuestion int               `json:"currentQuestion"`
	QuizCompleted   bool              `json:"quizCompleted"`
}

// ScoreSummary is the local (pre-submission) score readout.
type ScoreSummary struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func NewDraft(id string) *Draft {
	return &Draft{
		id:          id,
		state:       DraftIdle,
		userAnswers: make(map[string]string),
		subscribers: make(map[chan DraftView]struct{}),
	}
}

// SetPrompt stores the raw prompt text. No validation beyond what generation
// itself enforces.
func (d *Draft) SetPrompt(prompt string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompt = prompt
	d.broadcastLocked()
}

// Generate runs the pipeline and commits the result. A second call while one
// is in flight returns ErrGenerationInProgress rather than racing on shared
// state. On success the draft moves to ready and all exam progress for the
// previous quiz is discarded; on failure it moves to error with the previous
// committed quiz left unchanged.
func (d *Draft) Generate(ctx context.Context, gen QuizGenerator) error {
	d.mu.Lock()
	if d.state == DraftGenerating {
		d.mu.Unlock()
		return domain.ErrGenerationInProgress
	}
	prompt := strings.TrimSpace(d.prompt)
	if prompt == "" {
		d.mu.Unlock()
		return fmt.Errorf("%w: prompt must not be empty", domain.ErrValidation)
	}
	d.state = DraftGenerating
	d.errMsg = ""
	d.broadcastLocked()
	d.mu.Unlock()

	quiz, err := gen.GenerateFromPrompt(ctx, prompt)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = DraftError
		d.errMsg = err.Error()
		d.broadcastLocked()
		return err
	}

	// Generated drafts surface as public with no time limit; the generator
	// itself returns the bare title/description/questions triple.
	quiz.Status = domain.StatusPublic
	quiz.LimitTime = nil
	d.quiz = &quiz
	d.state = DraftReady
	d.editMode = false
	d.edited = nil
	d.userAnswers = make(map[string]string)
	d.currentIndex = 0
	d.quizCompleted = false
	d.broadcastLocked()
	return nil
}

// SetQuiz seeds the committed draft directly (editing an already-persisted quiz).
func (d *Draft) SetQuiz(quiz domain.Quiz) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := quiz.Clone()
	d.quiz = &clone
	d.state = DraftReady
	d.editMode = false
	d.edited = nil
	d.userAnswers = make(map[string]string)
	d.currentIndex = 0
	d.quizCompleted = false
	d.broadcastLocked()
}

// ToggleEditMode flips edit mode. Entering clones the committed quiz into the
// shadow copy; the clone is deep, so option edits never reach the committed
// view until SaveChanges.
func (d *Draft) ToggleEditMode() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quiz == nil {
		return
	}
	d.editMode = !d.editMode
	clone := d.quiz.Clone()
	d.edited = &clone
	d.broadcastLocked()
}

// SaveChanges copies the shadow back onto the committed draft. Persisting to
// the external store is a separate, explicit step.
func (d *Draft) SaveChanges() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.edited == nil {
		return
	}
	clone := d.edited.Clone()
	d.quiz = &clone
	d.editMode = false
	d.broadcastLocked()
}

// SetTitle updates the shadow copy's title.
func (d *Draft) SetTitle(title string) { d.editQuiz(func(q *domain.Quiz) { q.Title = title }) }

// SetDescription updates the shadow copy's description.
func (d *Draft) SetDescription(desc string) {
	d.editQuiz(func(q *domain.Quiz) { q.Description = desc })
}

// SetStatus updates the shadow copy's publication status.
func (d *Draft) SetStatus(status string) error {
	switch status {
	case domain.StatusDraft, domain.StatusPrivate, domain.StatusPublic:
	default:
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	d.editQuiz(func(q *domain.Quiz) { q.Status = status })
	return nil
}

// SetLimitTime updates the shadow copy's time limit; nil means unlimited.
func (d *Draft) SetLimitTime(seconds *int) {
	d.editQuiz(func(q *domain.Quiz) {
		if seconds == nil || *seconds <= 0 {
			q.LimitTime = nil
			return
		}
		limit := *seconds
		q.LimitTime = &limit
	})
}

// SetQuestionText updates one question's prompt text in the shadow copy.
func (d *Draft) SetQuestionText(questionID, text string) error {
	return d.editQuestion(questionID, func(q *domain.Question) { q.Question = text })
}

// SetOption updates one option's text in the shadow copy.
func (d *Draft) SetOption(questionID, key, text string) error {
	return d.editQuestion(questionID, func(q *domain.Question) {
		if _, ok := q.Options[key]; ok {
			q.Options[key] = text
		}
	})
}

// SetCorrectAnswer changes which option key is correct.
func (d *Draft) SetCorrectAnswer(questionID, key string) error {
	var bad bool
	err := d.editQuestion(questionID, func(q *domain.Question) {
		if _, ok := q.Options[key]; !ok {
			bad = true
			return
		}
		q.CorrectAnswer = key
	})
	if err != nil {
		return err
	}
	if bad {
		return fmt.Errorf("%w: option %q does not exist", domain.ErrValidation, key)
	}
	return nil
}

// SetExplanation updates one question's explanation in the shadow copy.
func (d *Draft) SetExplanation(questionID, text string) error {
	return d.editQuestion(questionID, func(q *domain.Question) { q.Explanation = text })
}

// AddQuestion appends a placeholder question to the shadow copy and returns
// its ID so the caller can open it for inline editing. The ID is fresh within
// the editing session.
func (d *Draft) AddQuestion() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.edited == nil {
		return "", domain.ErrQuizNotFound
	}
	taken := make(map[string]struct{}, len(d.edited.Questions))
	for i := range d.edited.Questions {
		taken[d.edited.Questions[i].ID] = struct{}{}
	}
	question := domain.Question{
		ID:       ai.NewQuestionID(taken),
		Question: "New question",
		Options: map[string]string{
			"A": "Option A",
			"B": "Option B",
			"C": "Option C",
			"D": "Option D",
		},
		CorrectAnswer: "A",
		Explanation:   "Explanation for the correct answer",
	}
	d.edited.Questions = append(d.edited.Questions, question)
	d.broadcastLocked()
	return question.ID, nil
}

// DeleteQuestion removes a question from the shadow copy by ID; absent IDs
// are a no-op.
func (d *Draft) DeleteQuestion(questionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.edited == nil {
		return
	}
	questions := d.edited.Questions[:0]
	for _, q := range d.edited.Questions {
		if q.ID != questionID {
			questions = append(questions, q)
		}
	}
	d.edited.Questions = questions
	d.broadcastLocked()
}

// ReorderQuestion swaps the question at index with its neighbor in the given
// direction ("up" or "down"). Either boundary is a no-op, not an error.
func (d *Draft) ReorderQuestion(index int, direction string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.edited == nil || index < 0 || index >= len(d.edited.Questions) {
		return
	}
	if (direction == "up" && index == 0) || (direction == "down" && index == len(d.edited.Questions)-1) {
		return
	}
	target := index - 1
	if direction == "down" {
		target = index + 1
	}
	qs := d.edited.Questions
	qs[index], qs[target] = qs[target], qs[index]
	d.broadcastLocked()
}

// AnswerQuestion records the chosen option key for a question.
func (d *Draft) AnswerQuestion(questionID, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userAnswers[questionID] = key
	d.broadcastLocked()
}

// NextQuestion advances navigation; moving past the last question marks the
// attempt completed.
func (d *Draft) NextQuestion() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quiz == nil {
		return
	}
	if d.currentIndex < len(d.quiz.Questions)-1 {
		d.currentIndex++
	} else {
		d.quizCompleted = true
	}
	d.broadcastLocked()
}

// PreviousQuestion steps navigation back, stopping at the first question.
func (d *Draft) PreviousQuestion() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currentIndex > 0 {
		d.currentIndex--
	}
	d.broadcastLocked()
}

// ResetProgress clears answers, navigation, and completion.
func (d *Draft) ResetProgress() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userAnswers = make(map[string]string)
	d.currentIndex = 0
	d.quizCompleted = false
	d.broadcastLocked()
}

// Score computes the local score for the committed quiz and current answers.
// A quiz with no questions scores zero.
func (d *Draft) Score() ScoreSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.quiz == nil || len(d.quiz.Questions) == 0 {
		return ScoreSummary{}
	}
	correct := 0
	for _, q := range d.quiz.Questions {
		if d.userAnswers[q.ID] == q.CorrectAnswer {
			correct++
		}
	}
	total := len(d.quiz.Questions)
	return ScoreSummary{
		Correct:    correct,
		Total:      total,
		Percentage: int(math.Round(100 * float64(correct) / float64(total))),
	}
}

// View returns a deep snapshot of the draft.
func (d *Draft) View() DraftView {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.viewLocked()
}

// Subscribe returns a channel receiving a snapshot after every mutation. The
// caller must invoke cancel to avoid leaks.
func (d *Draft) Subscribe() (<-chan DraftView, func()) {
	ch := make(chan DraftView, 8)

	d.mu.Lock()
	d.subscribers[ch] = struct{}{}
	initial := d.viewLocked()
	d.mu.Unlock()

	ch <- initial

	cancel := func() {
		d.mu.Lock()
		if _, ok := d.subscribers[ch]; ok {
			delete(d.subscribers, ch)
			close(ch)
		}
		d.mu.Unlock()
	}
	return ch, cancel
}

func (d *Draft) editQuiz(apply func(*domain.Quiz)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.edited == nil {
		return
	}
	apply(d.edited)
	d.broadcastLocked()
}

func (d *Draft) editQuestion(questionID string, apply func(*domain.Question)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.edited == nil {
		return domain.ErrQuizNotFound
	}
	for i := range d.edited.Questions {
		if d.edited.Questions[i].ID == questionID {
			apply(&d.edited.Questions[i])
			d.broadcastLocked()
			return nil
		}
	}
	return domain.ErrQuestionNotFound
}

func (d *Draft) viewLocked() DraftView {
	view := DraftView{
		Owner:           d.id,
		State:           d.state,
		Prompt:          d.prompt,
		Error:           d.errMsg,
		EditMode:        d.editMode,
		CurrentQuestion: d.currentIndex,
		QuizCompleted:   d.quizCompleted,
		UserAnswers:     make(map[string]string, len(d.userAnswers)),
	}
	for id, key := range d.userAnswers {
		view.UserAnswers[id] = key
	}
	if d.quiz != nil {
		clone := d.quiz.Clone()
		view.Quiz = &clone
	}
	if d.edited != nil {
		clone := d.edited.Clone()
		view.EditedQuiz = &clone
	}
	return view
}

func (d *Draft) broadcastLocked() {
	view := d.viewLocked()
	for ch := range d.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the stale snapshot so slow consumers never block edits.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
