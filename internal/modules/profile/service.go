// README: Profile service: interest onboarding.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Repository interface {
	Ensure(ctx context.Context, email string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	SaveInterests(ctx context.Context, email string, interests []string) (*Profile, error)
}

type Service struct {
	repo   Repository
	topics map[string]struct{}
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	topics := make(map[string]struct{}, len(Topics))
	for _, t := range Topics {
		topics[t] = struct{}{}
	}
	return &Service{repo: repo, topics: topics, logger: logger}
}

func (s *Service) Topics() []string {
	return append([]string(nil), Topics...)
}

// Ensure is called for every authenticated request that needs a profile ID.
func (s *Service) Ensure(ctx context.Context, email string) (*Profile, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email required", ErrValidation)
	}
	return s.repo.Ensure(ctx, email)
}

func (s *Service) Get(ctx context.Context, email string) (*Profile, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Save replaces the rider's interests. Labels are trimmed and deduplicated;
// the stored order follows the catalogue.
func (s *Service) Save(ctx context.Context, email string, interests []string) (*Profile, error) {
	clean, err := s.normalize(interests)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.SaveInterests(ctx, email, clean)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "interests saved", "profile_id", p.ID, "count", len(clean))
	return p, nil
}

func (s *Service) normalize(interests []string) ([]string, error) {
	seen := make(map[string]struct{}, len(interests))
	for _, raw := range interests {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("%w: empty interest", ErrValidation)
		}
		if _, ok := s.topics[label]; !ok {
			return nil, fmt.Errorf("%w: unknown interest %q", ErrValidation, label)
		}
		seen[label] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for _, t := range Topics {
		if _, ok := seen[t]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
