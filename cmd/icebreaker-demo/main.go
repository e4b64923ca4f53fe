// README: Icebreaker demo; asks Gemini for one opener without touching the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"maroonline/internal/modules/icebreaker"
	"maroonline/internal/types"
)

// freeQuota never runs out.
type freeQuota struct{}

func (freeQuota) UseToken(context.Context, types.ID) error      { return nil }
func (freeQuota) EnsureProfile(context.Context, types.ID) error { return nil }

func main() {
	shared := flag.String("shared", "Music,Food", "comma-separated shared interests")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logger.Error("GEMINI_API_KEY environment variable not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider, err := icebreaker.NewGeminiProvider(ctx, apiKey)
	if err != nil {
		logger.Error("init gemini", "error", err)
		os.Exit(1)
	}
	defer provider.Close()

	svc := icebreaker.NewService(freeQuota{}, provider, logger)
	s, err := svc.Suggest(ctx, types.NewID(), splitLabels(*shared))
	if err != nil {
		logger.Error("suggest", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Shared: %s\n", strings.Join(s.SharedInterests, ", "))
	fmt.Printf("Opener: %s\n", s.Text)
}

func splitLabels(csv string) []string {
	var out []string
	for _, l := range strings.Split(csv, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
