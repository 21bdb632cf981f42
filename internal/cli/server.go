package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizzz-service/internal/ai"
	"quizzz-service/internal/app"
	"quizzz-service/internal/config"
	"quizzz-service/internal/infra/memory"
	pgstore "quizzz-service/internal/infra/postgres"
	redisinfra "quizzz-service/internal/infra/redis"
	transport "quizzz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var store app.QuizStore
	var loader memory.QuizLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		pg := pgstore.NewQuizStore(pool)
		store, loader = pg, pg
	} else {
		mem := memory.NewQuizStore()
		store, loader = mem, mem
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var reader app.QuizReader
	if redisClient != nil {
		reader = redisinfra.NewQuizCache(redisClient, loader, quizTTL)
	} else {
		reader = memory.NewQuizCache(loader, quizTTL)
	}

	var drafts app.DraftRepository
	if redisClient != nil {
		drafts = redisinfra.NewDraftStore(redisClient, redisTTL)
	} else {
		drafts = memory.NewDraftStore()
	}

	chatClient, err := ai.NewClient(ai.ClientConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     config.TTLDuration(cfg.AI.Timeout, 2*time.Minute),
	}, nil)
	if err != nil {
		return err
	}
	pipeline := ai.NewPipeline(chatClient, cfg.Quiz.MaxGeneratedQuestions, cfg.Quiz.MaxRequestedQuestions)

	service := app.NewQuizService(drafts, reader, store)
	restHandler := transport.NewRestHandler(service, pipeline)
	wsHandler := transport.NewWSHandler(service, pipeline)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	restHandler.Register(mux)
	mux.HandleFunc("/ws/draft", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizzz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
