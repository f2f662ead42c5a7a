// Package cutoff decides which seasons training may use and whether a
// given week is fully ingested and safe to train on.
package cutoff

import (
	"context"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/pkg/logger"
)

// syntheticGameID matches placeholder identifiers like 2023_12_MIN_vs_GB
// that ingestion writes before the official schedule id is known. A week
// still carrying one has not finished ingesting.
var syntheticGameID = regexp.MustCompile(`^\d{4}_\d{1,2}_[A-Z]{2,3}_vs_[A-Z]{2,3}$`)

const (
	// minSeason is the earliest season with trustworthy ingested data.
	minSeason = 2020
	// currentSeasonMinGames is how many completed games the in-progress
	// season needs before it joins the training window.
	currentSeasonMinGames = 8
	// priorSeasonScan bounds how far back latest-ready search goes.
	priorSeasonScan = 4
	// maxWeek is the last regular-season week scanned in prior seasons.
	maxWeek = 18
)

// Store is the slice of the repository the policy reads.
type Store interface {
	WeekGameCounts(ctx context.Context, season, week int) (games, scored int, err error)
	WeekDefenseCount(ctx context.Context, season, week int) (int, error)
	WeekBoxScoreGameIDs(ctx context.Context, season, week int) ([]string, error)
	SeasonScoredGames(ctx context.Context, season int) (int, error)
}

type Policy struct {
	store Store
	log   *logrus.Entry
}

func NewPolicy(store Store) *Policy {
	return &Policy{
		store: store,
		log:   logger.WithComponent("cutoff"),
	}
}

// TrainingSeasons selects the three prior seasons plus the current one once
// it has enough completed games, filtered to seasons with reliable data.
// Backend failures degrade to excluding the current season.
func (p *Policy) TrainingSeasons(ctx context.Context, currentSeason int) []int {
	var seasons []int
	for season := currentSeason - 3; season < currentSeason; season++ {
		if season >= minSeason {
			seasons = append(seasons, season)
		}
	}

	if currentSeason >= minSeason {
		scored, err := p.store.SeasonScoredGames(ctx, currentSeason)
		if err != nil {
			p.log.WithField("season", currentSeason).WithError(err).
				Warn("Could not count completed games, excluding current season from training")
		} else if scored >= currentSeasonMinGames {
			seasons = append(seasons, currentSeason)
		}
	}
	return seasons
}

// WeekReady reports whether (season, week) is fully ingested: every game
// has both scores, the defense table holds exactly two rows per game, and
// no box-score row still references a synthetic game id. DB errors yield
// false.
func (p *Policy) WeekReady(ctx context.Context, season, week int) bool {
	games, scored, err := p.store.WeekGameCounts(ctx, season, week)
	if err != nil || games == 0 || scored != games {
		if err != nil {
			p.log.WithError(err).Warn("Week readiness check failed")
		}
		return false
	}

	defenseRows, err := p.store.WeekDefenseCount(ctx, season, week)
	if err != nil || defenseRows != 2*games {
		if err != nil {
			p.log.WithError(err).Warn("Week readiness check failed")
		}
		return false
	}

	gameIDs, err := p.store.WeekBoxScoreGameIDs(ctx, season, week)
	if err != nil {
		p.log.WithError(err).Warn("Week readiness check failed")
		return false
	}
	for _, id := range gameIDs {
		if syntheticGameID.MatchString(id) {
			return false
		}
	}
	return true
}

// LatestReadyBefore finds the most recent ready week strictly before
// (season, week): first earlier weeks of the same season, then up to four
// prior seasons scanned from week 18 down. ok is false when nothing
// qualifies.
func (p *Policy) LatestReadyBefore(ctx context.Context, season, week int) (readySeason, readyWeek int, ok bool) {
	for w := week - 1; w >= 1; w-- {
		if p.WeekReady(ctx, season, w) {
			return season, w, true
		}
	}
	for s := season - 1; s >= season-priorSeasonScan && s >= minSeason; s-- {
		for w := maxWeek; w >= 1; w-- {
			if p.WeekReady(ctx, s, w) {
				return s, w, true
			}
		}
	}
	return 0, 0, false
}
