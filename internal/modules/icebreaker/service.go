package icebreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"maroonline/internal/types"
)

type Quota interface {
	UseToken(ctx context.Context, profileID types.ID) error
	EnsureProfile(ctx context.Context, profileID types.ID) error
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	quota  Quota
	gen    Generator
	logger *slog.Logger
}

// NewService returns a Service. A nil gen disables suggestions.
func NewService(quota Quota, gen Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{quota: quota, gen: gen, logger: logger}
}

func (s *Service) Enabled() bool { return s.gen != nil }

// Suggest spends one of the rider's tokens on a one-sentence conversation
// starter built around shared interests.
func (s *Service) Suggest(ctx context.Context, profileID types.ID, shared []string) (Suggestion, error) {
	if s.gen == nil {
		return Suggestion{}, ErrDisabled
	}
	if err := s.useToken(ctx, profileID); err != nil {
		return Suggestion{}, err
	}

	text, err := s.gen.Generate(ctx, buildPrompt(shared))
	if err != nil {
		return Suggestion{}, err
	}
	s.logger.InfoContext(ctx, "icebreaker generated", "profile_id", profileID, "shared", len(shared))
	return Suggestion{Text: text, SharedInterests: shared}, nil
}

// useToken deducts one token, creating the usage row on first use.
func (s *Service) useToken(ctx context.Context, profileID types.ID) error {
	err := s.quota.UseToken(ctx, profileID)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}
	if initErr := s.quota.EnsureProfile(ctx, profileID); initErr != nil {
		return initErr
	}
	return s.quota.UseToken(ctx, profileID)
}

func buildPrompt(shared []string) string {
	topic := "riding the CTA Red Line"
	if len(shared) > 0 {
		topic = strings.Join(shared, ", ")
	}
	return fmt.Sprintf(`Two university students are about to share a train ride.
They both like: %s.
Write one friendly, specific conversation opener (one sentence, under 25 words).
Reply with the sentence only.`, topic)
}
