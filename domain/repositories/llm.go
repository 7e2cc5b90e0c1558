package repositories

import "context"

// FeedbackModel abstracts the text-completion provider used to generate
// speaking-practice feedback from a finished transcript.
type FeedbackModel interface {
	// Complete sends a single user message and returns the model's reply.
	// Model may be empty, in which case the adapter's default is used.
	Complete(ctx context.Context, message string, model string) (string, error)
}
