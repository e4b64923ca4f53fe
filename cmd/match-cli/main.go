// README: Match CLI; submits one trip and prints how every candidate in the pool scored.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"maroonline/internal/config"
	"maroonline/internal/infra"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/transit"
	"maroonline/internal/modules/trip"
)

type options struct {
	Email       string
	Interests   string
	Origin      string
	Destination string
	Mode        string
	At          string
	Fastest     int
	Commit      bool
	Verbose     bool
}

func main() {
	opts := parseFlags()

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("match failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.Email, "email", envOrDefault("MAROON_CLI_EMAIL", ""), "rider email (created if new)")
	flag.StringVar(&o.Interests, "interests", "", "comma-separated interests; replaces the stored list when set")
	flag.StringVar(&o.Origin, "from", "", "origin station name or id")
	flag.StringVar(&o.Destination, "to", "", "destination station name or id")
	flag.StringVar(&o.Mode, "mode", string(transit.DepartBy), "depart_by or arrive_by")
	flag.StringVar(&o.At, "at", "", "target time, RFC3339 or HH:MM today (default now)")
	flag.IntVar(&o.Fastest, "fastest", 0, "fastest ride in seconds; looked up when 0")
	flag.BoolVar(&o.Commit, "commit", false, "commit the best candidate")
	flag.BoolVar(&o.Verbose, "v", false, "debug logging")
	flag.Parse()

	if o.Email == "" || o.Origin == "" || o.Destination == "" {
		fmt.Fprintln(os.Stderr, "usage: match-cli -email you@uchicago.edu -from Howard -to Roosevelt [-at 08:30] [-interests Food,Music]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	return o
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, cfg config.Config, opts options, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	at, err := parseAt(opts.At, time.Now().In(loc), loc)
	if err != nil {
		return err
	}

	if err := infra.Migrate(ctx, cfg.DB.DSN, logger); err != nil {
		return err
	}
	pool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	route, err := transit.LoadRoute(transit.RouteSource{
		File:        cfg.Transit.RouteFile,
		GTFSPath:    cfg.Transit.GTFSPath,
		GTFSRouteID: cfg.Transit.GTFSRouteID,
	})
	if err != nil {
		return err
	}

	profiles := profile.NewService(profile.NewStore(pool), logger)
	trips := trip.NewService(trip.NewStore(pool), route, logger)
	matcher := matching.NewService(
		matching.NewStore(rdb, cfg.Matching.SuggestionTTL, cfg.Matching.LockTTL),
		trips,
		matching.NewRanker(route, cfg.Matching.TopK),
		logger,
	)

	p, err := profiles.Ensure(ctx, opts.Email)
	if err != nil {
		return err
	}
	if opts.Interests != "" {
		if p, err = profiles.Save(ctx, opts.Email, strings.Split(opts.Interests, ",")); err != nil {
			return err
		}
	}

	oi, err := route.Lookup(opts.Origin)
	if err != nil {
		return err
	}
	di, err := route.Lookup(opts.Destination)
	if err != nil {
		return err
	}
	origin, _ := route.Station(oi)
	destination, _ := route.Station(di)

	window, err := transit.PlanWindow(transit.WindowMode(opts.Mode), at, cfg.Window())
	if err != nil {
		return err
	}
	fastest := opts.Fastest
	if fastest <= 0 {
		chain, err := transit.NewConfiguredChain(cfg.Transit, loc, logger)
		if err != nil {
			return err
		}
		est, err := chain.Fastest(ctx, origin, destination, window.Earliest)
		if err != nil {
			return err
		}
		fastest = est.Seconds
		logger.Info("fastest ride", "seconds", est.Seconds, "source", est.Source)
	}

	t, err := trips.Create(ctx, trip.CreateCommand{
		ProfileID:      p.ID,
		Origin:         origin.ID,
		Destination:    destination.ID,
		Window:         window,
		FastestSeconds: fastest,
	})
	if err != nil {
		return err
	}

	fmt.Printf("trip %s  %s -> %s  %s - %s  fastest %ds  interests %s\n\n",
		t.ID, origin.Name, destination.Name,
		window.Earliest.Format("15:04"), window.Latest.Format("15:04"),
		fastest, strings.Join(p.Interests, ","))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tVERDICT\tOVERLAP\tCLOSENESS\tSIMILARITY\tSCORE")
	cands, err := matcher.FindMatchesWithDiagnostic(ctx, p.ID, t.ID, func(ev matching.Evaluation) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.3f\t%.2f\n",
			ev.CandidateTripID, ev.Reason, ev.Overlap, ev.Closeness, ev.Similarity, ev.Score)
	})
	tw.Flush()
	if err != nil {
		return err
	}

	mine := matching.NewInterestSet(p.Interests...)
	fmt.Printf("\ntop %d:\n", len(cands))
	for i, c := range cands {
		fmt.Printf("%d. %s  %s - %s  score %.2f  shared interests %v\n",
			i+1, c.TripID, c.Departure.In(loc).Format("15:04"), c.Arrival.In(loc).Format("15:04"),
			c.Score, mine.Intersect(c.Interests).Labels())
	}

	if opts.Commit && len(cands) > 0 {
		chosen, err := matcher.Commit(ctx, p.ID, t.ID, cands[0].TripID)
		if err != nil {
			return err
		}
		fmt.Printf("\ncommitted %s with %s\n", t.ID, chosen.TripID)
	}
	return nil
}

// parseAt accepts RFC3339 or a wall-clock HH:MM on now's date.
func parseAt(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	clock, err := time.ParseInLocation("15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad -at %q: want RFC3339 or HH:MM", s)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}
