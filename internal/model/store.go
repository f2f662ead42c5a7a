package model

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fantasygrid/gameday/internal/features"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// SchemaVersion is bumped whenever the feature schema or artifact layout
// changes incompatibly. Loading an artifact with a different version
// fails with ErrSchemaMismatch.
const SchemaVersion = 2

const (
	playerFloor = 0.0
	dstFloor    = 0.0
	dstCeiling  = 30.0
)

// Artifact is one trained model set: per-position player models plus the
// DST model, stamped with the data cutoff it was trained through.
type Artifact struct {
	SchemaVersion int
	Ruleset       string
	Season        int
	Week          int
	Seasons       []int
	TrainedAt     time.Time

	// SupportsPositionFeatures records whether player vectors carry the
	// per-position matchup block. Prediction must match it exactly.
	SupportsPositionFeatures bool

	Players map[string]*PositionModel
	DST     *PositionModel
}

// CutoffSource decides which data training may see.
type CutoffSource interface {
	TrainingSeasons(ctx context.Context, currentSeason int) []int
	LatestReadyBefore(ctx context.Context, season, week int) (readySeason, readyWeek int, ok bool)
}

// ModelStore trains, caches, persists, and serves artifacts.
type ModelStore struct {
	store   TrainingStore
	filler  DSTMatchupFiller
	cutoffs CutoffSource
	dir     string
	log     *logrus.Entry

	training singleflight.Group
}

func NewModelStore(store TrainingStore, filler DSTMatchupFiller, cutoffs CutoffSource, dir string) *ModelStore {
	return &ModelStore{
		store:   store,
		filler:  filler,
		cutoffs: cutoffs,
		dir:     dir,
		log:     logger.WithComponent("model"),
	}
}

// EnsureFor returns an artifact trained through the latest ready week
// before (season, week), loading a persisted one when present and
// training otherwise. Concurrent callers for the same cutoff share one
// training run.
func (ms *ModelStore) EnsureFor(ctx context.Context, rs scoring.Ruleset, season, week int) (*Artifact, error) {
	cutoffSeason, cutoffWeek, ok := ms.cutoffs.LatestReadyBefore(ctx, season, week)
	if !ok {
		return nil, fmt.Errorf("no fully ingested week before %d/wk%d: %w", season, week, types.ErrNotReady)
	}

	key := fmt.Sprintf("%s:%d:%d", rs.Slug(), cutoffSeason, cutoffWeek)
	v, err, _ := ms.training.Do(key, func() (interface{}, error) {
		if art, err := ms.Load(rs, cutoffSeason, cutoffWeek); err == nil {
			return art, nil
		}
		art, err := ms.Train(ctx, rs, cutoffSeason, cutoffWeek)
		if err != nil {
			return nil, err
		}
		if err := ms.Save(art); err != nil {
			ms.log.WithError(err).Warn("Trained artifact could not be persisted, serving from memory")
		}
		return art, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

// Train fits a full artifact on data through (cutoffSeason, cutoffWeek).
func (ms *ModelStore) Train(ctx context.Context, rs scoring.Ruleset, cutoffSeason, cutoffWeek int) (*Artifact, error) {
	seasons := ms.cutoffs.TrainingSeasons(ctx, cutoffSeason)
	if len(seasons) == 0 {
		return nil, fmt.Errorf("no usable training seasons before %d: %w", cutoffSeason, types.ErrNotReady)
	}

	log := ms.log.WithFields(logrus.Fields{
		"ruleset":     rs.Name,
		"seasons":     seasons,
		"cutoff_week": fmt.Sprintf("%d/wk%d", cutoffSeason, cutoffWeek),
	})
	log.Info("Training models")
	started := time.Now()

	playerRows, err := ms.store.TrainingPlayerRows(ctx, seasons)
	if err != nil {
		return nil, err
	}
	defenseRows, err := ms.store.TrainingDefenseRows(ctx, seasons)
	if err != nil {
		return nil, err
	}

	art := &Artifact{
		SchemaVersion:            SchemaVersion,
		Ruleset:                  rs.Name,
		Season:                   cutoffSeason,
		Week:                     cutoffWeek,
		Seasons:                  seasons,
		TrainedAt:                time.Now().UTC(),
		SupportsPositionFeatures: false,
		Players:                  make(map[string]*PositionModel),
	}

	sets := buildPlayerDatasets(playerRows, rs, cutoffSeason, cutoffWeek)
	for _, position := range types.SkillPositions {
		set := sets[position]
		if set == nil || len(set.rows) < minPositionRows {
			rows := 0
			if set != nil {
				rows = len(set.rows)
			}
			log.WithFields(logrus.Fields{"position": position, "rows": rows}).
				Warn("Too few training rows, position gets no model")
			continue
		}
		m := trainPosition(set, features.BaseFeatureNames, log.WithField("position", position))
		art.Players[position] = m
		log.WithFields(logrus.Fields{
			"position": position,
			"model":    m.Kind,
			"rows":     m.TrainingRows,
			"mae":      m.HeldOutMAE,
		}).Info("Position model selected")
	}
	if len(art.Players) == 0 {
		return nil, fmt.Errorf("no position reached %d training rows: %w", minPositionRows, types.ErrNotReady)
	}

	dstSet, err := buildDSTDataset(ctx, defenseRows, rs, ms.filler, cutoffSeason, cutoffWeek, log)
	if err != nil {
		return nil, err
	}
	if len(dstSet.rows) >= minPositionRows {
		art.DST = trainPosition(dstSet, features.DSTFeatureNames, log.WithField("position", "DST"))
		log.WithFields(logrus.Fields{
			"model": art.DST.Kind,
			"rows":  art.DST.TrainingRows,
			"mae":   art.DST.HeldOutMAE,
		}).Info("DST model selected")
	} else {
		log.WithField("rows", len(dstSet.rows)).Warn("Too few DST training rows, defenses get no model")
	}

	log.WithField("elapsed", time.Since(started).Round(time.Millisecond)).Info("Training complete")
	return art, nil
}

// PredictPlayer projects one player from an assembled feature vector.
// Projections never go below zero.
func (ms *ModelStore) PredictPlayer(art *Artifact, f *features.PlayerFeatures) (float64, error) {
	m, ok := art.Players[f.Position]
	if !ok {
		return 0, fmt.Errorf("no %s model in %s artifact: %w", f.Position, art.Ruleset, types.ErrNotReady)
	}
	points, err := m.Predict(f.Vector(art.SupportsPositionFeatures))
	if err != nil {
		return 0, err
	}
	if points < playerFloor {
		points = playerFloor
	}
	return points, nil
}

// PredictDST projects one defense, clamped to the plausible scoring range.
func (ms *ModelStore) PredictDST(art *Artifact, f *features.DSTFeatures) (float64, error) {
	if art.DST == nil {
		return 0, fmt.Errorf("no DST model in %s artifact: %w", art.Ruleset, types.ErrNotReady)
	}
	points, err := art.DST.Predict(f.Vector())
	if err != nil {
		return 0, err
	}
	if points < dstFloor {
		points = dstFloor
	}
	if points > dstCeiling {
		points = dstCeiling
	}
	return points, nil
}
