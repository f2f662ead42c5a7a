package features

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/fantasygrid/gameday/internal/matchup"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// Store is the slice of the repository the builder reads.
type Store interface {
	PlayerHistory(ctx context.Context, playerID string, season, week, limit int) ([]types.PlayerGameRow, error)
	PlayerHistories(ctx context.Context, playerIDs []string, season, week, perPlayer int) (map[string][]types.PlayerGameRow, error)
	TeamDefenseHistory(ctx context.Context, teamID string, season, week, limit int) ([]types.TeamDefenseRow, error)
}

// MatchupSource is the slice of the matchup analyzer the builder consumes.
type MatchupSource interface {
	OpponentFor(ctx context.Context, teamID string, season, week int) (string, error)
	PositionMatchupFeatures(ctx context.Context, position, offensiveTeam, defensiveTeam string, season, week int) (map[string]float64, error)
	MatchupForDST(ctx context.Context, dstTeam string, season, week int) (*matchup.MatchupStrength, error)
}

type cacheKey struct {
	season  int
	week    int
	ruleset string
}

// Builder assembles feature vectors. The prefetch cache is request-scoped:
// one builder per orchestrator run, never shared across requests.
type Builder struct {
	store    Store
	matchups MatchupSource
	log      *logrus.Entry

	cacheScope cacheKey
	cache      map[string][]HistoryRow
}

func NewBuilder(store Store, matchups MatchupSource) *Builder {
	return &Builder{
		store:    store,
		matchups: matchups,
		log:      logger.WithComponent("features"),
	}
}

// Prefetch bulk-loads and pre-scores the union of the players' histories so
// subsequent single-player builds avoid per-player queries.
func (b *Builder) Prefetch(ctx context.Context, playerIDs []string, season, week int, rs scoring.Ruleset) error {
	histories, err := b.store.PlayerHistories(ctx, playerIDs, season, week, PlayerHistoryLimit)
	if err != nil {
		return fmt.Errorf("prefetch histories: %w", err)
	}

	b.cacheScope = cacheKey{season: season, week: week, ruleset: rs.Name}
	b.cache = make(map[string][]HistoryRow, len(histories))
	rows := 0
	for playerID, history := range histories {
		b.cache[playerID] = scoreHistory(history, rs)
		rows += len(history)
	}

	b.log.WithFields(logrus.Fields{
		"players": len(playerIDs),
		"rows":    rows,
		"season":  season,
		"week":    week,
	}).Debug("Feature cache primed")
	return nil
}

// BuildPlayerFeatures assembles a player's vector for (season, week) from
// rows strictly before that week. Fewer than three prior games returns
// ErrNotEnoughHistory.
func (b *Builder) BuildPlayerFeatures(ctx context.Context, playerID string, season, week int, rs scoring.Ruleset) (*PlayerFeatures, error) {
	history, err := b.playerHistory(ctx, playerID, season, week, rs)
	if err != nil {
		return nil, err
	}

	position := ""
	if len(history) > 0 {
		position = history[len(history)-1].Row.Position
	}
	f, err := AssemblePlayerFeatures(history, playerID, position, season, week)
	if err != nil {
		return nil, err
	}

	if f.TeamID != "" {
		opponent, err := b.matchups.OpponentFor(ctx, f.TeamID, season, week)
		if err != nil {
			return nil, err
		}
		if opponent != "" {
			positionFeatures, err := b.matchups.PositionMatchupFeatures(ctx, f.Position, f.TeamID, opponent, season, week)
			if err != nil {
				return nil, err
			}
			f.PositionMatchup = positionFeatures
		}
	}
	return f, nil
}

// BuildDSTFeatures assembles a defense's vector for (season, week).
func (b *Builder) BuildDSTFeatures(ctx context.Context, teamID string, season, week int, rs scoring.Ruleset) (*DSTFeatures, error) {
	history, err := b.store.TeamDefenseHistory(ctx, teamID, season, week, DSTHistoryLimit)
	if err != nil {
		return nil, err
	}

	points := make([]float64, len(history))
	for i, row := range history {
		points[i] = scoring.ScoreDST(row, rs).Total
	}

	f, err := AssembleDSTFeatures(history, points, teamID, season, week)
	if err != nil {
		return nil, err
	}

	m, err := b.matchups.MatchupForDST(ctx, teamID, season, week)
	if err != nil {
		return nil, err
	}
	if m != nil {
		f.OpponentOffensiveScore = m.Offense.OffensiveScore
		f.MatchupPointsModifier = m.PointsModifier
		f.MatchupSackModifier = m.SackModifier
	}
	return f, nil
}

// FillDSTMatchup populates the matchup fields of an assembled DST vector.
// The training pass uses it after AssembleDSTFeatures.
func (b *Builder) FillDSTMatchup(ctx context.Context, f *DSTFeatures) error {
	m, err := b.matchups.MatchupForDST(ctx, f.TeamID, f.Season, f.Week)
	if err != nil {
		return err
	}
	if m != nil {
		f.OpponentOffensiveScore = m.Offense.OffensiveScore
		f.MatchupPointsModifier = m.PointsModifier
		f.MatchupSackModifier = m.SackModifier
	}
	return nil
}

func (b *Builder) playerHistory(ctx context.Context, playerID string, season, week int, rs scoring.Ruleset) ([]HistoryRow, error) {
	scope := cacheKey{season: season, week: week, ruleset: rs.Name}
	if b.cache != nil && b.cacheScope == scope {
		if history, ok := b.cache[playerID]; ok {
			return history, nil
		}
	}

	rows, err := b.store.PlayerHistory(ctx, playerID, season, week, PlayerHistoryLimit)
	if err != nil {
		return nil, err
	}
	history := scoreHistory(rows, rs)
	if b.cache != nil && b.cacheScope == scope {
		b.cache[playerID] = history
	}
	return history, nil
}

func scoreHistory(rows []types.PlayerGameRow, rs scoring.Ruleset) []HistoryRow {
	history := make([]HistoryRow, len(rows))
	for i, row := range rows {
		history[i] = HistoryRow{
			Row:           row,
			FantasyPoints: scoring.ScorePlayer(row.BoxScoreRow, rs).Total,
		}
	}
	return history
}

// consistencyAndTrendValues computes the five-game sample standard
// deviation and the linear slope over the window ordered most recent
// first. At least three games are needed for consistency, four for trend.
func consistencyAndTrendValues(points []float64) (consistency, trend float64) {
	n := len(points)
	window := points[max(0, n-5):]
	if len(window) < 3 {
		return 0, 0
	}

	recentFirst := make([]float64, len(window))
	for i, v := range window {
		recentFirst[len(window)-1-i] = v
	}

	consistency = stat.StdDev(recentFirst, nil)
	if len(recentFirst) >= 4 {
		xs := make([]float64, len(recentFirst))
		for i := range xs {
			xs[i] = float64(i)
		}
		_, trend = stat.LinearRegression(xs, recentFirst, nil, false)
	}
	return consistency, trend
}
