package api

// PromptResponse carries one practice sentence for the learner to read.
type PromptResponse struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

// FeedbackRequest asks the text-completion collaborator for feedback on a
// finished transcript. Model is optional.
type FeedbackRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// FeedbackResponse returns the generated feedback.
type FeedbackResponse struct {
	Content string `json:"content"`
}

// SpeechRequest asks the text-to-speech collaborator to synthesize audio.
type SpeechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
}

// ErrorResponse is the uniform error body for API failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
