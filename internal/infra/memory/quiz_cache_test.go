package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizzz-service/internal/domain"
	"quizzz-service/internal/infra/memory"
)

type countingLoader struct {
	mu    sync.Mutex
	loads int
	quiz  domain.Quiz
	err   error
}

func (l *countingLoader) LoadQuiz(_ context.Context, _ string) (domain.Quiz, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	if l.err != nil {
		return domain.Quiz{}, l.err
	}
	return l.quiz, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func TestQuizCacheServesFromCache(t *testing.T) {
	loader := &countingLoader{quiz: sampleQuiz("quiz-1", "u1", time.Now())}
	cache := memory.NewQuizCache(loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		quiz, err := cache.GetQuiz(ctx, "quiz-1")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if quiz.ID != "quiz-1" {
			t.Fatalf("unexpected quiz: %+v", quiz)
		}
	}
	if loader.count() != 1 {
		t.Fatalf("expected a single backing load, got %d", loader.count())
	}
}

func TestQuizCacheInvalidateForcesReload(t *testing.T) {
	loader := &countingLoader{quiz: sampleQuiz("quiz-1", "u1", time.Now())}
	cache := memory.NewQuizCache(loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	cache.Invalidate(ctx, "quiz-1")
	if _, err := cache.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", loader.count())
	}
}

func TestQuizCachePropagatesLoaderErrors(t *testing.T) {
	loader := &countingLoader{err: domain.ErrQuizNotFound}
	cache := memory.NewQuizCache(loader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	// Errors are not cached: the next read retries the loader.
	if _, err := cache.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected two loads, got %d", loader.count())
	}
}

func TestQuizCacheReturnsIsolatedCopies(t *testing.T) {
	loader := &countingLoader{quiz: sampleQuiz("quiz-1", "u1", time.Now())}
	cache := memory.NewQuizCache(loader, time.Minute)
	ctx := context.Background()

	first, err := cache.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.Questions[0].Options["A"] = "tampered"

	second, err := cache.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.Questions[0].Options["A"] != "a" {
		t.Fatal("mutating a cached read leaked into the cache")
	}
}

func TestStaticQuizLoader(t *testing.T) {
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": sampleQuiz("quiz-1", "u1", time.Now()),
	})
	if _, err := loader.LoadQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := loader.LoadQuiz(context.Background(), "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
