package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/internal/cutoff"
	"github.com/fantasygrid/gameday/internal/features"
	"github.com/fantasygrid/gameday/internal/injury"
	"github.com/fantasygrid/gameday/internal/matchup"
	"github.com/fantasygrid/gameday/internal/model"
	"github.com/fantasygrid/gameday/internal/orchestrator"
	"github.com/fantasygrid/gameday/internal/repository"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/config"
	"github.com/fantasygrid/gameday/pkg/database"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// Exit codes mirror the error taxonomy so shell callers can branch on
// the failure class.
const (
	exitOK             = 0
	exitFailure        = 1
	exitBadInput       = 2
	exitNotReady       = 3
	exitSchemaMismatch = 4
	exitDataBackend    = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	season := flag.Int("season", 0, "target season, e.g. 2025")
	week := flag.Int("week", 0, "target week, 1-18")
	ruleset := flag.String("ruleset", "FanDuel", "scoring ruleset name")
	noInjuries := flag.Bool("no-injuries", false, "skip injury filtering and adjustments")
	rankings := flag.Bool("rankings", false, "print actual leaderboards for a completed week instead of projections")
	position := flag.String("position", "", "restrict -rankings to one position")
	limit := flag.Int("limit", 25, "number of -rankings entries")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitFailure
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	if *season == 0 || *week == 0 {
		fmt.Fprintln(os.Stderr, "usage: gameday -season 2025 -week 10 [-ruleset FanDuel] [-no-injuries]")
		return exitBadInput
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.WithError(err).Error("Database connection failed")
		return exitDataBackend
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
			redisClient = redis.NewClient(opts)
			defer redisClient.Close()
		} else {
			log.WithError(err).Warn("Invalid REDIS_URL, caching disabled")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	if *rankings {
		return printRankings(ctx, log, db, *season, *week, *ruleset, *position, *limit)
	}

	o, err := buildPipeline(ctx, cfg, db, redisClient)
	if err != nil {
		log.WithError(err).Error("Pipeline setup failed")
		return exitFor(err)
	}

	result, err := o.GamedayPredictions(ctx, *season, *week, *ruleset, !*noInjuries)
	if err != nil {
		log.WithError(err).Error("Gameday run failed")
		return exitFor(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.WithError(err).Error("Result encoding failed")
		return exitFailure
	}
	return exitOK
}

// printRankings reports what actually happened: the week's box scores run
// through the ruleset, highest totals first.
func printRankings(ctx context.Context, log *logrus.Logger, db *database.DB, season, week int, ruleset, position string, limit int) int {
	store := repository.New(db.DB)
	rulesets, err := scoring.LoadRulesets(ctx, store)
	if err != nil {
		log.WithError(err).Error("Failed to load scoring rulesets")
		return exitFor(err)
	}
	rs, err := rulesets.Get(ruleset)
	if err != nil {
		log.WithError(err).Error("Unknown ruleset")
		return exitFor(err)
	}

	players, err := scoring.WeeklyRankings(ctx, store, season, week, rs, position, limit)
	if err != nil {
		log.WithError(err).Error("Player rankings failed")
		return exitFor(err)
	}
	defenses, err := scoring.DSTWeeklyRankings(ctx, store, season, week, rs, limit)
	if err != nil {
		log.WithError(err).Error("Defense rankings failed")
		return exitFor(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{
		"season":   season,
		"week":     week,
		"ruleset":  rs.Name,
		"players":  players,
		"defenses": defenses,
	}); err != nil {
		log.WithError(err).Error("Result encoding failed")
		return exitFailure
	}
	return exitOK
}

func buildPipeline(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client) (*orchestrator.Orchestrator, error) {
	store := repository.New(db.DB)

	rulesets, err := scoring.LoadRulesets(ctx, store)
	if err != nil {
		return nil, err
	}

	analyzer := matchup.NewAnalyzer(store, matchup.NewCache(redisClient, time.Hour))
	policy := cutoff.NewPolicy(store)
	newBuilder := func() orchestrator.FeatureSource {
		return features.NewBuilder(store, analyzer)
	}
	// Training shares one builder; its matchup lookups hit the shared cache.
	models := model.NewModelStore(store, features.NewBuilder(store, analyzer), policy, cfg.ModelDir)

	opts := []orchestrator.Option{
		orchestrator.WithWorkers(cfg.PredictionWorkers),
		orchestrator.WithResultCache(orchestrator.NewResultCache(redisClient, cfg.ResultCacheTTL)),
	}
	dbInjuries := injury.NewDBSource(store)
	if cfg.InjurySourceURL != "" {
		perSecond := float64(cfg.InjuryRateLimit) / 60.0
		opts = append(opts, orchestrator.WithInjurySource(
			injury.NewHTTPSource(cfg.InjurySourceURL, cfg.InjuryTimeout, perSecond, dbInjuries)))
	} else {
		opts = append(opts, orchestrator.WithInjurySource(dbInjuries))
	}

	return orchestrator.New(store, rulesets, models, newBuilder, opts...), nil
}

func exitFor(err error) int {
	switch types.KindOf(err) {
	case types.KindBadInput:
		return exitBadInput
	case types.KindNotReady, types.KindNotEnoughHistory:
		return exitNotReady
	case types.KindSchemaMismatch:
		return exitSchemaMismatch
	case types.KindDataBackend:
		return exitDataBackend
	default:
		return exitFailure
	}
}
