package api

import (
	"math/rand"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lingopal/server/domain/repositories"
	"github.com/lingopal/server/internal/websocket"
)

// Practice sentences by language. Content selection is deliberately simple;
// the interesting work happens in the transcription relay.
var prompts = map[string][]string{
	"en": {
		"Describe your morning routine.",
		"Talk about your favorite meal and how it is made.",
		"Explain what you did last weekend.",
	},
	"es": {
		"Describe tu rutina de la manana.",
		"Habla de tu comida favorita.",
	},
	"ja": {
		"Asa no shukan ni tsuite hanashite kudasai.",
	},
}

// InitRoutes registers all HTTP routes.
func InitRoutes(e *echo.Echo, hub *websocket.Hub, feedback repositories.FeedbackModel, speech repositories.TextToSpeech, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "lingopal-server",
		})
	})

	v1 := e.Group("/api/v1")

	v1.GET("/prompt", getPrompt)

	v1.POST("/feedback", func(c echo.Context) error {
		return postFeedback(c, feedback, logger)
	})

	v1.POST("/speech", func(c echo.Context) error {
		return postSpeech(c, speech, logger)
	})

	// The transcription transport endpoint
	e.GET("/ws/transcribe", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

func getPrompt(c echo.Context) error {
	language := strings.ToLower(c.QueryParam("language"))
	if language == "" {
		language = "en"
	}

	list, ok := prompts[language]
	if !ok {
		list = prompts["en"]
		language = "en"
	}

	return c.JSON(http.StatusOK, PromptResponse{
		Prompt:   list[rand.Intn(len(list))],
		Language: language,
	})
}

func postFeedback(c echo.Context, feedback repositories.FeedbackModel, logger *zap.Logger) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Message is required",
		})
	}

	if feedback == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "not_configured",
			Message: "Feedback model is not configured",
		})
	}

	content, err := feedback.Complete(c.Request().Context(), req.Message, req.Model)
	if err != nil {
		logger.Error("Feedback generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "feedback_failed",
			Message: "Failed to get AI response",
		})
	}

	return c.JSON(http.StatusOK, FeedbackResponse{Content: content})
}

func postSpeech(c echo.Context, speech repositories.TextToSpeech, logger *zap.Logger) error {
	var req SpeechRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Text is required",
		})
	}

	if speech == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "not_configured",
			Message: "Text-to-speech is not configured",
		})
	}

	audioChan, err := speech.Synthesize(c.Request().Context(), repositories.SpeechRequest{
		Text:     req.Text,
		Language: req.Language,
		VoiceID:  req.VoiceID,
	})
	if err != nil {
		logger.Error("Speech synthesis failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "synthesis_failed",
			Message: "Failed to synthesize speech",
		})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "audio/pcm")
	resp.WriteHeader(http.StatusOK)

	for chunk := range audioChan {
		if _, err := resp.Write(chunk); err != nil {
			logger.Warn("Client dropped speech stream", zap.Error(err))
			return nil
		}
		resp.Flush()
	}
	return nil
}
