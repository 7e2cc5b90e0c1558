package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/lingopal/server/adapters/llm"
	"github.com/lingopal/server/adapters/stt"
	"github.com/lingopal/server/adapters/tts"
	"github.com/lingopal/server/domain/repositories"
	"github.com/lingopal/server/internal/api"
	"github.com/lingopal/server/internal/config"
	"github.com/lingopal/server/internal/websocket"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment")
	}
	cfg := config.Load()

	recognizer := buildRecognizer(cfg, logger)
	feedback := buildFeedbackModel(cfg, logger)
	speech := buildTextToSpeech(cfg, logger)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize WebSocket hub
	hub := websocket.NewHub(recognizer, cfg, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, feedback, speech, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("sttProvider", cfg.STTProvider),
		zap.String("llmProvider", cfg.LLMProvider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildRecognizer picks the speech recognition provider. A nil recognizer is
// valid: sessions then answer start requests with a configuration error.
func buildRecognizer(cfg config.Config, logger *zap.Logger) repositories.Recognizer {
	switch cfg.STTProvider {
	case "google":
		logger.Info("Using Google Cloud Speech recognizer")
		return stt.NewGoogleRecognizer(logger)
	default:
		if cfg.DeepgramAPIKey == "" {
			logger.Error("DEEPGRAM_API_KEY is not set; transcription will be unavailable")
			return nil
		}
		recognizer, err := stt.NewDeepgramRecognizer(cfg.DeepgramAPIKey, logger)
		if err != nil {
			logger.Error("Failed to create Deepgram recognizer", zap.Error(err))
			return nil
		}
		logger.Info("Using Deepgram recognizer")
		return recognizer
	}
}

func buildFeedbackModel(cfg config.Config, logger *zap.Logger) repositories.FeedbackModel {
	switch cfg.LLMProvider {
	case "gemini":
		model, err := llm.NewGeminiLLM(cfg.GeminiAPIKey, logger)
		if err != nil {
			logger.Warn("Gemini feedback model unavailable", zap.Error(err))
			return nil
		}
		return model
	default:
		model, err := llm.NewOpenRouterLLM(llm.OpenRouterConfig{APIKey: cfg.OpenRouterAPIKey}, logger)
		if err != nil {
			logger.Warn("OpenRouter feedback model unavailable", zap.Error(err))
			return nil
		}
		return model
	}
}

func buildTextToSpeech(cfg config.Config, logger *zap.Logger) repositories.TextToSpeech {
	synth, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{APIKey: cfg.ElevenLabsAPIKey}, logger)
	if err != nil {
		logger.Warn("Text-to-speech unavailable", zap.Error(err))
		return nil
	}
	return synth
}
