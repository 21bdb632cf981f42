package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"quizzz-service/internal/app"
	"quizzz-service/internal/domain"
	"quizzz-service/internal/infra/memory"
	"quizzz-service/internal/infra/postgres"
	pgmigrations "quizzz-service/internal/infra/postgres/migrations"
	infraredis "quizzz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewQuizStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := infraredis.NewQuizCache(redisClient, store, 5*time.Minute)
	drafts := infraredis.NewDraftStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(drafts, cache, store)

	saved, err := service.SaveQuiz(ctx, "owner", sampleQuiz())
	if err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated quiz ID")
	}

	// First read fills the cache from Postgres, second is served from Redis.
	for i := 0; i < 2; i++ {
		got, err := service.GetQuiz(ctx, saved.ID)
		if err != nil {
			t.Fatalf("get quiz %d: %v", i, err)
		}
		if got.Title != saved.Title || len(got.Questions) != 1 {
			t.Fatalf("unexpected quiz: %+v", got)
		}
	}

	submission, err := service.Submit(ctx, saved.ID, "player", map[string]string{"q1": "B"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submission.Result.Score != 100 || submission.Result.CorrectAnswers != 1 {
		t.Fatalf("unexpected result: %+v", submission.Result)
	}
	if submission.QuizRef != "quizzes/"+saved.ID {
		t.Fatalf("expected quizRef populated, got %q", submission.QuizRef)
	}

	stored, err := service.GetSubmission(ctx, submission.ID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if stored.Result.QuizData.Title != saved.Title {
		t.Fatalf("expected embedded quiz snapshot, got %+v", stored.Result)
	}

	// Editing after submission must not alter the stored snapshot.
	edited := saved.Clone()
	edited.Title = "Edited later"
	if _, err := service.SaveQuiz(ctx, "owner", edited); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	stored, err = service.GetSubmission(ctx, submission.ID)
	if err != nil {
		t.Fatalf("get submission again: %v", err)
	}
	if stored.Result.QuizData.Title != saved.Title {
		t.Fatal("submission snapshot mutated by a later edit")
	}

	// The re-save invalidated the cache, so reads see the new title.
	got, err := service.GetQuiz(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get after edit: %v", err)
	}
	if got.Title != "Edited later" {
		t.Fatalf("expected updated title after invalidation, got %q", got.Title)
	}

	byQuiz, err := service.ListSubmissionsByQuiz(ctx, saved.ID)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(byQuiz) != 1 || byQuiz[0].ID != submission.ID {
		t.Fatalf("unexpected submissions: %+v", byQuiz)
	}
}

func TestDraftEditingAgainstMemoryFallback(t *testing.T) {
	// Sanity check that the service wiring works identically without infra.
	ctx := context.Background()
	store := memory.NewQuizStore()
	cache := memory.NewQuizCache(store, time.Minute)
	service := app.NewQuizService(memory.NewDraftStore(), cache, store)

	saved, err := service.SaveQuiz(ctx, "owner", sampleQuiz())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	draft := service.Drafts().GetOrCreate("owner")
	draft.SetQuiz(saved)
	draft.ToggleEditMode()
	draft.SetTitle("Edited in draft")
	draft.SaveChanges()

	view := draft.View()
	if _, err := service.SaveQuiz(ctx, "owner", *view.Quiz); err != nil {
		t.Fatalf("persist edited draft: %v", err)
	}
	got, err := service.GetQuiz(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Edited in draft" {
		t.Fatalf("draft edit not persisted: %q", got.Title)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
