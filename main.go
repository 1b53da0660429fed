package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lpernett/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/miwamasa/smolagentUIWrapper/agent"
	"github.com/miwamasa/smolagentUIWrapper/floorplan"
	"github.com/miwamasa/smolagentUIWrapper/handlers"
	"github.com/miwamasa/smolagentUIWrapper/models"
	"github.com/miwamasa/smolagentUIWrapper/parser"
	"github.com/miwamasa/smolagentUIWrapper/storage"
)

// Load environment variables from .env file
func init() {
	log.Info("Loading environment variables")
	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Set up logging
	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	log.Info("Server Version: smolagent UI wrapper V2")

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	// Set up Redis connection. Redis only backs the transcript archive,
	// so it is optional; when configured it must actually work.
	var redisClient *redis.Client
	if os.Getenv("REDIS_HOST") != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:        os.Getenv("REDIS_HOST"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          0,
			DialTimeout: 20 * time.Second, // initial connection timeout
		})

		redisCtx, cancelRedis := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelRedis()

		if _, err := redisClient.Ping(redisCtx).Result(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Info("Successfully connected to Redis")
	} else {
		log.Info("REDIS_HOST not set, transcript archive disabled")
	}
	transcripts := storage.NewTranscriptStore(redisClient, 24*time.Hour, zapLogger)

	// Measurement database for the agent's SQL tool.
	store, err := storage.OpenMeasurementStore(
		envOr("MEASUREMENTS_DSN", "file:measurements.db?mode=memory&cache=shared"), zapLogger)
	if err != nil {
		log.Fatalf("Failed to open measurement store: %v", err)
	}
	defer store.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 60*time.Second)
	csvPath := envOr("MEASUREMENTS_CSV", "data/dfall.csv")
	if rows, err := store.LoadCSV(loadCtx, csvPath); err != nil {
		log.Warnf("Measurement data not loaded (%v), agent queries will see an empty table", err)
	} else {
		log.Infof("Loaded %d measurement rows from %s", rows, csvPath)
	}
	cancelLoad()

	// Floor plan. Failure to load is not fatal: the server runs with all
	// map features disabled for its lifetime.
	plans := floorplan.NewManager(envOr("FLOORPLAN_DATA_DIR", "data"), zapLogger)
	if _, err := plans.LoadLegacyData(
		envOr("FLOORPLAN_IMAGE", "floor1.png"),
		envOr("FLOORPLAN_RECTANGLES", "rectangles.json"),
		envOr("FLOORPLAN_FLOOR_ID", models.DefaultFloorID),
		envOr("FLOORPLAN_FLOOR_NAME", "1階"),
	); err != nil {
		log.Warnf("Floor plan unavailable, map features disabled: %v", err)
	}

	// Agent: Gemini when a key is configured, echo mock otherwise.
	var runner agent.Runner
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		model := envOr("GEMINI_MODEL", "gemini-2.5-flash")
		geminiRunner, err := agent.NewGeminiRunner(context.Background(), apiKey, model, store, zapLogger)
		if err != nil {
			log.Fatalf("Failed to create Gemini runner: %v", err)
		}
		runner = geminiRunner
		log.Infof("Agent backend: gemini (%s)", model)
	} else {
		runner = agent.MockRunner{}
		log.Info("GOOGLE_API_KEY not set, agent running in mock mode")
	}

	agentTimeout := defaultDuration("AGENT_TIMEOUT", 120*time.Second)
	deps := handlers.SessionDeps{
		Runner:       runner,
		Parser:       parser.NewEngine(zapLogger),
		FloorPlan:    plans,
		Transcript:   transcripts,
		AgentTimeout: agentTimeout,
	}

	// Define HTTP routes
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleChatSession(w, r, deps)
	})
	http.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleTranscript(w, r, transcripts)
	})

	// Set up signal handling
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverExit := make(chan struct{})

	// Start HTTP server in a goroutine
	go func() {
		port := ":" + os.Getenv("PORT")
		if port == ":" {
			port = ":8000"
		}
		log.Infof("Starting server on %s", port)
		log.Fatal(http.ListenAndServe(port, nil))
		close(serverExit)
	}()

	// On termination, close all connections and shut down the server
	select {
	case <-stop:
		log.Info("Shutting down server...")
	case <-serverExit:
		log.Info("Server exited unexpectedly...")
	}

	log.Info("Server shut down gracefully")
}

func defaultDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("Invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
