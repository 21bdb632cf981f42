package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizzz-service/internal/app"
	"quizzz-service/internal/domain"
	"quizzz-service/internal/infra/memory"
)

// stubPipeline stands in for the two-stage generation pipeline.
type stubPipeline struct {
	quiz domain.Quiz
	err  error
}

func (p *stubPipeline) GenerateFromPrompt(_ context.Context, _ string) (domain.Quiz, error) {
	if p.err != nil {
		return domain.Quiz{}, p.err
	}
	return p.quiz.Clone(), nil
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		Title:       "Arithmetic",
		Description: "one question",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Question:      "What is 2 + 2?",
				Options:       map[string]string{"A": "3", "B": "4", "C": "5", "D": "6"},
				CorrectAnswer: "B",
				Explanation:   "arithmetic",
			},
		},
		Status: domain.StatusPublic,
	}
}

func newTestService() *app.QuizService {
	store := memory.NewQuizStore()
	cache := memory.NewQuizCache(store, time.Minute)
	return app.NewQuizService(memory.NewDraftStore(), cache, store)
}

func newRestServer(t *testing.T, generator app.QuizGenerator) (*httptest.Server, *app.QuizService) {
	t.Helper()
	service := newTestService()
	mux := http.NewServeMux()
	NewRestHandler(service, generator).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestGenerateQuizSuccess(t *testing.T) {
	server, _ := newRestServer(t, &stubPipeline{quiz: testQuiz()})

	resp, err := http.Post(server.URL+"/api/v1/generate-quiz", "application/json",
		bytes.NewBufferString(`{"prompt": "quiz me on arithmetic"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var quiz domain.Quiz
	if err := json.NewDecoder(resp.Body).Decode(&quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if quiz.Title != "Arithmetic" || len(quiz.Questions) != 1 {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}
}

func TestGenerateQuizRejectsBlankPrompt(t *testing.T) {
	server, _ := newRestServer(t, &stubPipeline{quiz: testQuiz()})

	for _, body := range []string{`{"prompt": ""}`, `{"prompt": "   "}`, `not json`} {
		resp, err := http.Post(server.URL+"/api/v1/generate-quiz", "application/json",
			bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
		if msg := decodeError(t, resp); msg != "Please provide a valid prompt for the quiz" {
			t.Fatalf("unexpected error message: %q", msg)
		}
		resp.Body.Close()
	}
}

func TestGenerateQuizFailuresCollapseToGenericMessage(t *testing.T) {
	for name, genErr := range map[string]error{
		"upstream": domain.ErrUpstream,
		"format":   domain.ErrGenerationFormat,
	} {
		server, _ := newRestServer(t, &stubPipeline{err: genErr})

		resp, err := http.Post(server.URL+"/api/v1/generate-quiz", "application/json",
			bytes.NewBufferString(`{"prompt": "anything"}`))
		if err != nil {
			t.Fatalf("%s: post: %v", name, err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", name, resp.StatusCode)
		}
		if msg := decodeError(t, resp); msg != genericGenerationError {
			t.Fatalf("%s: expected generic message, got %q", name, msg)
		}
		resp.Body.Close()
	}
}

func TestQuizCRUDOverREST(t *testing.T) {
	server, _ := newRestServer(t, &stubPipeline{quiz: testQuiz()})
	client := server.Client()

	payload, _ := json.Marshal(testQuiz())
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/quiz", bytes.NewReader(payload))
	req.Header.Set("X-User-ID", "u1")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created domain.Quiz
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	resp.Body.Close()
	if created.ID == "" || created.UserID != "u1" {
		t.Fatalf("unexpected created quiz: %+v", created)
	}

	resp, err = client.Get(server.URL + "/api/v1/quiz/" + created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = client.Get(server.URL + "/api/v1/quizzes?userId=u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var quizzes []domain.Quiz
	if err := json.NewDecoder(resp.Body).Decode(&quizzes); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(quizzes) != 1 {
		t.Fatalf("expected one quiz, got %d", len(quizzes))
	}

	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/api/v1/quiz/"+created.ID, nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = client.Get(server.URL + "/api/v1/quiz/" + created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetQuizUnknownIDReturns404(t *testing.T) {
	server, _ := newRestServer(t, &stubPipeline{})

	resp, err := http.Get(server.URL + "/api/v1/quiz/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitOverREST(t *testing.T) {
	server, service := newRestServer(t, &stubPipeline{})

	saved, err := service.SaveQuiz(context.Background(), "owner", testQuiz())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	resp, err := http.Post(server.URL+"/api/v1/quiz/"+saved.ID+"/submit", "application/json",
		bytes.NewBufferString(`{"userId": "player", "answers": {"q1": "B"}}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var submission domain.Submission
	if err := json.NewDecoder(resp.Body).Decode(&submission); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if submission.Result.Score != 100 || submission.QuizRef != "quizzes/"+saved.ID {
		t.Fatalf("unexpected submission: %+v", submission)
	}
}

func TestSubmitPrivateQuizForbiddenForStranger(t *testing.T) {
	server, service := newRestServer(t, &stubPipeline{})

	quiz := testQuiz()
	quiz.Status = domain.StatusPrivate
	saved, err := service.SaveQuiz(context.Background(), "owner", quiz)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	resp, err := http.Post(server.URL+"/api/v1/quiz/"+saved.ID+"/submit", "application/json",
		bytes.NewBufferString(`{"userId": "stranger", "answers": {}}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestListSubmissionsRequiresFilter(t *testing.T) {
	server, _ := newRestServer(t, &stubPipeline{})

	resp, err := http.Get(server.URL + "/api/v1/submissions")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
