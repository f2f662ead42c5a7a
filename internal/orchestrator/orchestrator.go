// Package orchestrator runs the full gameday pipeline: injuries, model
// residency, features, predictions, adjustments, and lineup composition.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fantasygrid/gameday/internal/features"
	"github.com/fantasygrid/gameday/internal/injury"
	"github.com/fantasygrid/gameday/internal/lineup"
	"github.com/fantasygrid/gameday/internal/model"
	"github.com/fantasygrid/gameday/internal/repository"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// ScheduleSource is the slice of the repository the orchestrator reads.
type ScheduleSource interface {
	EligiblePlayers(ctx context.Context, season, week int) ([]repository.EligiblePlayer, error)
	GamesForWeek(ctx context.Context, season, week int) ([]types.Game, error)
}

// FeatureSource is one request's feature builder.
type FeatureSource interface {
	Prefetch(ctx context.Context, playerIDs []string, season, week int, rs scoring.Ruleset) error
	BuildPlayerFeatures(ctx context.Context, playerID string, season, week int, rs scoring.Ruleset) (*features.PlayerFeatures, error)
	BuildDSTFeatures(ctx context.Context, teamID string, season, week int, rs scoring.Ruleset) (*features.DSTFeatures, error)
}

// Predictor serves trained artifacts.
type Predictor interface {
	EnsureFor(ctx context.Context, rs scoring.Ruleset, season, week int) (*model.Artifact, error)
	PredictPlayer(art *model.Artifact, f *features.PlayerFeatures) (float64, error)
	PredictDST(art *model.Artifact, f *features.DSTFeatures) (float64, error)
}

// Result is the full gameday payload.
type Result struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Season    int       `json:"season"`
	Week      int       `json:"week"`
	Ruleset   string    `json:"ruleset"`

	InjuryReport      *injury.Report           `json:"injury_report,omitempty"`
	PlayerPredictions []types.PlayerPrediction `json:"player_predictions"`
	OptimalLineup     *lineup.Lineup           `json:"optimal_lineup"`
	SalaryLineup      *lineup.SalaryLineup     `json:"salary_lineup,omitempty"`
	DSTPredictions    []types.DSTPrediction    `json:"dst_predictions"`
	Summary           Summary                  `json:"summary"`
}

// Summary is the quick-glance block at the end of a result.
type Summary struct {
	PlayerCount   int     `json:"player_count"`
	DSTCount      int     `json:"dst_count"`
	AveragePoints float64 `json:"average_points"`
	TopPlayer     string  `json:"top_player,omitempty"`
	TopPoints     float64 `json:"top_points,omitempty"`
	OptimalTotal  float64 `json:"optimal_total"`
}

// Orchestrator wires the pipeline together. One instance serves many
// requests; feature builders are created per run.
type Orchestrator struct {
	schedule   ScheduleSource
	rulesets   *scoring.RulesetStore
	predictor  Predictor
	injuries   injury.Source
	newBuilder func() FeatureSource
	cache      *ResultCache
	salaries   lineup.SalaryEstimator
	workers    int
	log        *logrus.Entry
}

// Option tunes an Orchestrator.
type Option func(*Orchestrator)

// WithInjurySource attaches a live or DB-backed injury source.
func WithInjurySource(src injury.Source) Option {
	return func(o *Orchestrator) { o.injuries = src }
}

// WithResultCache memoizes full results for hot (season, week) requests.
func WithResultCache(cache *ResultCache) Option {
	return func(o *Orchestrator) { o.cache = cache }
}

// WithWorkers caps the prediction fan-out.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

func New(schedule ScheduleSource, rulesets *scoring.RulesetStore, predictor Predictor, newBuilder func() FeatureSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		schedule:   schedule,
		rulesets:   rulesets,
		predictor:  predictor,
		newBuilder: newBuilder,
		salaries:   lineup.EstimateSalary,
		workers:    runtime.NumCPU(),
		log:        logger.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GamedayPredictions runs the whole pipeline for one (season, week,
// ruleset). A missing injury source degrades to raw predictions; a model
// schema mismatch is fatal for the request.
func (o *Orchestrator) GamedayPredictions(ctx context.Context, season, week int, rulesetName string, includeInjuries bool) (*Result, error) {
	if season <= 0 || week < 1 {
		return nil, fmt.Errorf("season %d week %d: %w", season, week, types.ErrBadInput)
	}
	rs, err := o.rulesets.Get(rulesetName)
	if err != nil {
		return nil, err
	}

	if cached := o.cache.Get(ctx, rs, season, week, includeInjuries); cached != nil {
		o.log.WithField("run_id", cached.RunID).Debug("Serving cached result")
		return cached, nil
	}

	runID := uuid.NewString()
	log := logger.WithRunContext(runID, rs.Name, season, week)
	log.Info("Gameday run started")
	started := time.Now()

	var injuries []types.InjuryRecord
	var report *injury.Report
	if includeInjuries && o.injuries != nil {
		injuries, err = o.injuries.CurrentInjuries(ctx)
		if err != nil {
			log.WithError(err).Warn("Injury source unavailable, proceeding without adjustments")
			injuries = nil
		} else {
			report = injury.BuildReport(injuries)
			log.WithFields(logrus.Fields{
				"out": report.TotalOut, "questionable": report.TotalQuestionable,
			}).Info("Injury report fetched")
		}
	}

	eligible, err := o.schedule.EligiblePlayers(ctx, season, week)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("no eligible players for %d/wk%d: %w", season, week, types.ErrNotFound)
	}

	art, err := o.predictor.EnsureFor(ctx, rs, season, week)
	if err != nil {
		return nil, err
	}

	builder := o.newBuilder()
	playerIDs := make([]string, len(eligible))
	for i, p := range eligible {
		playerIDs[i] = p.PlayerID
	}
	if err := builder.Prefetch(ctx, playerIDs, season, week, rs); err != nil {
		log.WithError(err).Warn("Feature prefetch failed, falling back to per-player queries")
	}

	predictions, err := o.predictPlayers(ctx, builder, art, eligible, season, week, rs, log)
	if err != nil {
		return nil, err
	}

	if injuries != nil {
		filter := injury.NewFilter(injuries)
		predictions = filter.FilterOut(predictions)
		predictions = filter.Adjust(predictions)
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].PredictedPoints > predictions[j].PredictedPoints
	})

	dsts, err := o.predictDSTs(ctx, builder, art, season, week, rs, injuries, log)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:             runID,
		Timestamp:         time.Now().UTC(),
		Season:            season,
		Week:              week,
		Ruleset:           rs.Name,
		InjuryReport:      report,
		PlayerPredictions: predictions,
		OptimalLineup:     lineup.Compose(predictions),
		DSTPredictions:    dsts,
	}
	result.SalaryLineup = o.composeSalaryLineup(predictions, dsts)
	result.Summary = summarize(result)

	o.cache.Put(ctx, rs, season, week, includeInjuries, result)
	log.WithFields(logrus.Fields{
		"players": len(predictions),
		"dsts":    len(dsts),
		"elapsed": time.Since(started).Round(time.Millisecond),
	}).Info("Gameday run complete")
	return result, nil
}

// predictPlayers fans the eligible set out over the worker pool. Players
// with too little history or a nonpositive projection are dropped, not
// errors.
func (o *Orchestrator) predictPlayers(ctx context.Context, builder FeatureSource, art *model.Artifact, eligible []repository.EligiblePlayer, season, week int, rs scoring.Ruleset, log *logrus.Entry) ([]types.PlayerPrediction, error) {
	var mu sync.Mutex
	var predictions []types.PlayerPrediction
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, player := range eligible {
		player := player
		g.Go(func() error {
			f, err := builder.BuildPlayerFeatures(gctx, player.PlayerID, season, week, rs)
			if err != nil {
				if types.KindOf(err) == types.KindNotEnoughHistory {
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				return err
			}
			points, err := o.predictor.PredictPlayer(art, f)
			if err != nil {
				if types.KindOf(err) == types.KindNotReady {
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				return err
			}
			if points <= 0 {
				return nil
			}
			mu.Lock()
			predictions = append(predictions, types.PlayerPrediction{
				PlayerID:        player.PlayerID,
				PlayerName:      player.PlayerName,
				Team:            player.TeamID,
				Position:        player.Position,
				PredictedPoints: points,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if skipped > 0 {
		log.WithField("skipped", skipped).Info("Players without enough history skipped")
	}
	return predictions, nil
}

// predictDSTs projects both defenses of every scheduled game and applies
// the opponent-injury uplift.
func (o *Orchestrator) predictDSTs(ctx context.Context, builder FeatureSource, art *model.Artifact, season, week int, rs scoring.Ruleset, injuries []types.InjuryRecord, log *logrus.Entry) ([]types.DSTPrediction, error) {
	games, err := o.schedule.GamesForWeek(ctx, season, week)
	if err != nil {
		return nil, err
	}

	var dsts []types.DSTPrediction
	for _, game := range games {
		pairs := [][2]string{
			{game.HomeTeamID, game.AwayTeamID},
			{game.AwayTeamID, game.HomeTeamID},
		}
		for _, pair := range pairs {
			teamID, opponent := pair[0], pair[1]
			f, err := builder.BuildDSTFeatures(ctx, teamID, season, week, rs)
			if err != nil {
				if types.KindOf(err) == types.KindNotEnoughHistory {
					continue
				}
				return nil, err
			}
			points, err := o.predictor.PredictDST(art, f)
			if err != nil {
				if types.KindOf(err) == types.KindNotReady {
					log.Debug("No DST model in artifact, skipping defenses")
					return dsts, nil
				}
				return nil, err
			}

			boost := 0.0
			if injuries != nil {
				boost = injury.DSTBoost(injury.TeamImpact(injuries, opponent))
			}
			dsts = append(dsts, types.DSTPrediction{
				TeamID:          teamID,
				Opponent:        opponent,
				PredictedPoints: points * (1 + boost),
				InjuryBoost:     boost,
			})
		}
	}

	sort.SliceStable(dsts, func(i, j int) bool {
		return dsts[i].PredictedPoints > dsts[j].PredictedPoints
	})
	return dsts, nil
}

// composeSalaryLineup feeds adjusted player and DST projections through
// the salary heuristic into the DFS composer.
func (o *Orchestrator) composeSalaryLineup(predictions []types.PlayerPrediction, dsts []types.DSTPrediction) *lineup.SalaryLineup {
	var pool []lineup.Projection
	for _, p := range predictions {
		pool = append(pool, lineup.Projection{
			PlayerID:        p.PlayerID,
			PlayerName:      p.PlayerName,
			Position:        p.Position,
			Team:            p.Team,
			ProjectedPoints: p.PredictedPoints,
			Salary:          o.salaries(p.Position, p.PredictedPoints),
		})
	}
	for _, d := range dsts {
		pool = append(pool, lineup.Projection{
			PlayerID:        "DST_" + d.TeamID,
			PlayerName:      d.TeamID + " DST",
			Position:        "DST",
			Team:            d.TeamID,
			ProjectedPoints: d.PredictedPoints,
			Salary:          o.salaries("DST", d.PredictedPoints),
		})
	}
	if len(pool) == 0 {
		return nil
	}
	return lineup.ComposeSalaryAware(pool, lineup.DefaultConstraints())
}

func summarize(result *Result) Summary {
	s := Summary{
		PlayerCount: len(result.PlayerPredictions),
		DSTCount:    len(result.DSTPredictions),
	}
	if result.OptimalLineup != nil {
		s.OptimalTotal = result.OptimalLineup.TotalProjected
	}
	if len(result.PlayerPredictions) > 0 {
		var sum float64
		for _, p := range result.PlayerPredictions {
			sum += p.PredictedPoints
		}
		s.AveragePoints = sum / float64(len(result.PlayerPredictions))
		s.TopPlayer = result.PlayerPredictions[0].PlayerName
		s.TopPoints = result.PlayerPredictions[0].PredictedPoints
	}
	return s
}
