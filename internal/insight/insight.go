// Package insight produces answers for the dashboard's
// question-and-answer panel. The shipped responder is a stub:
// wiring a real model behind GenerateFunc is deliberately out of
// scope.
package insight

import (
	"context"
	"fmt"
	"strings"
)

// GenerateFunc answers a free-form question about the chat data.
// Implementations must be safe for concurrent use.
type GenerateFunc func(ctx context.Context, question string) (string, error)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = fmt.Errorf("question is empty")

// Generate is the default responder. It returns a canned reply,
// matching the placeholder behavior of the production dashboard.
func Generate(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	return "Esta é uma resposta simulada. Em produção, esta resposta" +
		" viria da API de IA.", nil
}
