// README: Bench cases: environment, migrations, HTTP contract, commit races, and throughput.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"maroonline/internal/infra"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/transit"
	"maroonline/internal/modules/trip"
	"maroonline/internal/types"
	"maroonline/migrations"
)

const (
	statusPass    = "PASS"
	statusFail    = "FAIL"
	statusPending = "PENDING"
	statusSkip    = "SKIP"
)

type Runner struct {
	cfg    Config
	httpc  *http.Client
	db     *pgxpool.Pool
	redis  *redis.Client
	logger *slog.Logger
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		logger: slog.New(slog.DiscardHandler),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "database reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "redis reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusFail, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "goose up",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if err := infra.Migrate(ctx, r.cfg.DSN, r.logger); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "every table in the embedded migrations is present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				tables, err := tableNames(migrations.FS)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass, Note: strings.Join(tables, ",")}
			},
		},

		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, []int{200}, nil),
		{
			Name:  "API: metrics exposed",
			Focus: "prometheus scrape",
			Run: func(ctx context.Context, r *Runner) Result {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/metrics", nil)
				start := time.Now()
				resp, err := r.httpc.Do(req)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				defer resp.Body.Close()
				body, _ := io.ReadAll(resp.Body)
				if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "maroonline_") {
					return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
				}
				return Result{Status: statusPass, Latency: time.Since(start)}
			},
		},

		// Auth
		httpCase("Auth: foreign domain -> 403", base+"/api/auth/code", map[string]any{
			"email": "someone@example.com",
		}, []int{403}, []int{404}),
		httpCase("Auth: missing email -> 400", base+"/api/auth/code", map[string]any{}, []int{400}, []int{404}),
		httpCase("Auth: bad code -> 401", base+"/api/auth/verify", map[string]any{
			"email": "bench@uchicago.edu",
			"code":  "000000",
		}, []int{401}, []int{404}),
		manualCase("Auth: code delivered", "check the SMTP inbox, or the API log when no SMTP host is set"),

		// Session guard
		httpCaseMethod("Profile: no session -> 401", http.MethodGet, base+"/api/profile", nil, []int{401}, []int{404}),
		httpCase("Trips: no session -> 401", base+"/api/trips", map[string]any{
			"origin":      "Howard",
			"destination": "Roosevelt",
		}, []int{401}, []int{404}),
		manualCase("Trips: no upcoming train -> 422", "needs a signed-in rider and an estimator with no service"),

		// Concurrency
		{
			Name:  "Concurrency: one commit per trip",
			Focus: "conditional update lets only one pairing claim a trip",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentCommit(ctx, r)
			},
		},

		// Performance
		{
			Name:  "Perf: ranker throughput",
			Focus: "in-process filter and score over a synthetic pool",
			Run: func(ctx context.Context, r *Runner) Result {
				return rankLoad(ctx, r)
			},
		},
		{
			Name:  "Perf: health throughput",
			Focus: "HTTP stack overhead",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/health")
			},
		},
	}
}

func httpCase(name, url string, body any, okStatuses, pendingStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, okStatuses, pendingStatuses)
}

func httpCaseMethod(name, method, url string, body any, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			var reader io.Reader
			if body != nil {
				b, _ := json.Marshal(body)
				reader = strings.NewReader(string(b))
			}
			req, _ := http.NewRequestWithContext(ctx, method, url, reader)
			req.Header.Set("Content-Type", "application/json")
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)

			note := fmt.Sprintf("status=%d", resp.StatusCode)
			switch {
			case contains(okStatuses, resp.StatusCode):
				return Result{Status: statusPass, Latency: latency, Note: note}
			case contains(pendingStatuses, resp.StatusCode):
				return Result{Status: statusPending, Latency: latency, Note: note}
			default:
				return Result{Status: statusFail, Latency: latency, Note: note}
			}
		},
	}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Manual",
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: statusSkip, Note: note}
		},
	}
}

// concurrentCommit seeds three riders and races commits pairing trip A with
// B or C. Exactly one may win.
func concurrentCommit(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	profiles := profile.NewStore(r.db)
	trips := trip.NewStore(r.db)

	start := time.Now().Add(time.Hour).Truncate(time.Minute)
	run := types.NewID()
	ids := make([]types.ID, 3)
	owners := make([]types.ID, 3)
	for i := range ids {
		p, err := profiles.Ensure(ctx, fmt.Sprintf("bench-%s-%d@uchicago.edu", run, i))
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		owners[i] = p.ID
		t := &trip.Trip{
			ID:                 types.NewID(),
			ProfileID:          p.ID,
			OriginStation:      "40900",
			DestinationStation: "41450",
			Earliest:           start,
			Latest:             start.Add(15 * time.Minute),
			FastestSeconds:     1500,
			CreatedAt:          time.Now(),
		}
		if err := trips.Create(ctx, t); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		ids[i] = t.ID
	}
	defer cleanupRiders(r.db, ids, owners)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succ      int
		conflicts int
		other     error
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := trips.CommitMatch(ctx, &trip.Match{
				ID:        types.NewID(),
				TripA:     ids[0],
				TripB:     ids[1+i%2],
				Departure: start,
				Arrival:   start.Add(15 * time.Minute),
				Score:     1,
				CreatedAt: time.Now(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succ++
			case errors.Is(err, trip.ErrConflict):
				conflicts++
			default:
				other = err
			}
		}(i)
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflicts=%d", succ, conflicts)
	if other != nil {
		return Result{Status: statusFail, Note: note + " error=" + other.Error()}
	}
	if succ != 1 {
		return Result{Status: statusFail, Note: note}
	}
	return Result{Status: statusPass, Note: note}
}

func cleanupRiders(db *pgxpool.Pool, tripIDs, profileIDs []types.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts := make([]string, len(tripIDs))
	for i, id := range tripIDs {
		ts[i] = id.String()
	}
	ps := make([]string, len(profileIDs))
	for i, id := range profileIDs {
		ps[i] = id.String()
	}
	_, _ = db.Exec(ctx, `DELETE FROM matches WHERE trip_a::text = ANY($1) OR trip_b::text = ANY($1)`, ts)
	_, _ = db.Exec(ctx, `DELETE FROM trips WHERE id::text = ANY($1)`, ts)
	_, _ = db.Exec(ctx, `DELETE FROM profiles WHERE id::text = ANY($1)`, ps)
}

// rankLoad ranks one request against a synthetic pool from every worker
// until the duration elapses.
func rankLoad(ctx context.Context, r *Runner) Result {
	route, err := transit.DefaultRoute()
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	ranker := matching.NewRanker(route, matching.DefaultTopK)
	at := time.Date(2025, 4, 28, 8, 0, 0, 0, time.UTC)
	req := matching.TripRequest{
		ID:             "bench-request",
		Owner:          "bench-owner",
		Segment:        matching.RouteSegment{Origin: 0, Destination: route.Len() / 2},
		Window:         matching.TimeWindow{Earliest: at, Latest: at.Add(15 * time.Minute)},
		FastestSeconds: 1200,
	}
	interests := matching.NewInterestSet("Food", "Music", "Tech")
	pool := syntheticPool(route, r.cfg.PoolSize, at, 1)

	end := time.Now().Add(r.cfg.Duration)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		latencies []time.Duration
		failures  int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local []time.Duration
			var errs int
			for time.Now().Before(end) && ctx.Err() == nil {
				start := time.Now()
				if _, err := ranker.Rank(req, interests, pool, nil); err != nil {
					errs++
					continue
				}
				local = append(local, time.Since(start))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			failures += errs
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("no rankings completed, errors=%d", failures)}
	}
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{
		Status:  statusPass,
		Latency: percentile(latencies, 0.5),
		Note: fmt.Sprintf("pool=%d ranks/s=%.0f p95=%s errors=%d",
			len(pool), rps, percentile(latencies, 0.95), failures),
	}
}

// syntheticPool builds n random open trips around at. The same seed always
// yields the same pool.
func syntheticPool(route *matching.Route, n int, at time.Time, seed uint64) []matching.PoolEntry {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	topics := profile.Topics
	pool := make([]matching.PoolEntry, 0, n)
	for i := 0; i < n; i++ {
		o := rng.IntN(route.Len())
		d := rng.IntN(route.Len())
		if d == o {
			d = (o + 1) % route.Len()
		}
		start := at.Add(time.Duration(rng.IntN(120)-60) * time.Minute)
		var labels []string
		for _, t := range topics {
			if rng.IntN(4) == 0 {
				labels = append(labels, t)
			}
		}
		pool = append(pool, matching.PoolEntry{
			Trip: matching.TripRequest{
				ID:             types.ID(fmt.Sprintf("synthetic-%d", i)),
				Owner:          types.ID(fmt.Sprintf("rider-%d", i)),
				Segment:        matching.RouteSegment{Origin: o, Destination: d},
				Window:         matching.TimeWindow{Earliest: start, Latest: start.Add(15 * time.Minute)},
				FastestSeconds: 300 + rng.IntN(2400),
			},
			Interests: matching.NewInterestSet(labels...),
		})
	}
	return pool
}

func perfLoad(ctx context.Context, r *Runner, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				resp, err := r.httpc.Do(req)
				if err != nil {
					mu.Lock()
					errCount++
					mu.Unlock()
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				mu.Lock()
				count++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

// percentile returns the q-quantile (0..1) of ds. ds is sorted in place.
func percentile(ds []time.Duration, q float64) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
	idx := int(q * float64(len(ds)-1))
	return ds[idx]
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+(?:if\s+not\s+exists\s+)?([a-zA-Z0-9_]+)`)

// tableNames lists the tables created by the migration files in fsys.
func tableNames(fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTableRe.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}
