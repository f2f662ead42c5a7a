// Package scoring converts box-score rows into fantasy points under named
// rulesets. Scoring itself is pure; rulesets are loaded once at startup and
// treated as immutable afterwards.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// Ruleset is one named set of scoring coefficients. DSTTiers holds the
// seven points-allowed tier values ordered shutout, 1-6, 7-13, 14-20,
// 21-27, 28-34, 35+.
type Ruleset struct {
	Name string

	PassYardPoints float64
	PassTDPoints   float64
	PassIntPoints  float64

	RushYardPoints float64
	RushTDPoints   float64

	ReceptionPoints     float64
	ReceivingYardPoints float64
	ReceivingTDPoints   float64

	FumblePoints float64

	DSTSackPoints           float64
	DSTInterceptionPoints   float64
	DSTFumbleRecoveryPoints float64
	DSTTouchdownPoints      float64
	DSTSafetyPoints         float64

	DSTTiers [7]float64

	DSTUnder100Bonus float64
	DSTUnder300Bonus float64
}

// Slug is the filesystem-safe ruleset name used in model paths.
func (r Ruleset) Slug() string {
	return strings.ReplaceAll(strings.ToLower(r.Name), " ", "")
}

// hasYardageBonuses reports whether the +3 milestone bonuses apply. They
// are part of the FanDuel and DraftKings rule cards, not generic scoring.
func (r Ruleset) hasYardageBonuses() bool {
	return r.Name == "FanDuel" || r.Name == "DraftKings"
}

// DefaultFanDuel is the compiled-in FanDuel card used when the
// scoring_systems table is empty.
func DefaultFanDuel() Ruleset {
	return Ruleset{
		Name:                    "FanDuel",
		PassYardPoints:          0.04,
		PassTDPoints:            4,
		PassIntPoints:           -1,
		RushYardPoints:          0.1,
		RushTDPoints:            6,
		ReceptionPoints:         0.5,
		ReceivingYardPoints:     0.1,
		ReceivingTDPoints:       6,
		FumblePoints:            -2,
		DSTSackPoints:           1,
		DSTInterceptionPoints:   2,
		DSTFumbleRecoveryPoints: 2,
		DSTTouchdownPoints:      6,
		DSTSafetyPoints:         2,
		DSTTiers:                [7]float64{10, 7, 4, 1, 0, -1, -4},
	}
}

// DefaultDraftKings differs from FanDuel only in full-point receptions.
func DefaultDraftKings() Ruleset {
	r := DefaultFanDuel()
	r.Name = "DraftKings"
	r.ReceptionPoints = 1.0
	return r
}

// RulesetSource is the repository slice the loader needs.
type RulesetSource interface {
	ScoringSystemRows(ctx context.Context) ([]map[string]interface{}, error)
}

// RulesetStore holds the loaded rulesets. Immutable after construction.
type RulesetStore struct {
	rulesets map[string]Ruleset
}

// NewStaticStore builds a store from in-memory rulesets. Tests and the
// DB-less paths use this.
func NewStaticStore(rulesets ...Ruleset) *RulesetStore {
	m := make(map[string]Ruleset, len(rulesets))
	for _, r := range rulesets {
		m[r.Name] = r
	}
	return &RulesetStore{rulesets: m}
}

// LoadRulesets reads scoring_systems and materializes every row, coalescing
// current and legacy DST column names. An empty table falls back to the
// compiled-in FanDuel and DraftKings cards so the pipeline stays usable.
func LoadRulesets(ctx context.Context, src RulesetSource) (*RulesetStore, error) {
	rows, err := src.ScoringSystemRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rulesets: %w", err)
	}
	log := logger.WithComponent("scoring")
	if len(rows) == 0 {
		log.Warn("scoring_systems table is empty, using built-in FanDuel/DraftKings defaults")
		return NewStaticStore(DefaultFanDuel(), DefaultDraftKings()), nil
	}

	store := &RulesetStore{rulesets: make(map[string]Ruleset, len(rows))}
	for _, row := range rows {
		name, _ := row["system_name"].(string)
		if name == "" {
			continue
		}
		store.rulesets[name] = rulesetFromRow(name, row)
	}
	log.WithField("rulesets", len(store.rulesets)).Info("Scoring rulesets loaded")
	return store, nil
}

// Get returns the named ruleset or ErrUnknownRuleset.
func (s *RulesetStore) Get(name string) (Ruleset, error) {
	r, ok := s.rulesets[name]
	if !ok {
		return Ruleset{}, fmt.Errorf("%w: %q", types.ErrUnknownRuleset, name)
	}
	return r, nil
}

// Names lists the loaded ruleset names, sorted.
func (s *RulesetStore) Names() []string {
	names := make([]string, 0, len(s.rulesets))
	for name := range s.rulesets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func rulesetFromRow(name string, row map[string]interface{}) Ruleset {
	val := func(def float64, keys ...string) float64 {
		for _, key := range keys {
			if raw, ok := row[key]; ok && raw != nil {
				if f, ok := toFloat(raw); ok {
					return f
				}
			}
		}
		return def
	}

	return Ruleset{
		Name:                name,
		PassYardPoints:      val(0.04, "pass_yard_points"),
		PassTDPoints:        val(4, "pass_td_points"),
		PassIntPoints:       val(-1, "pass_int_points"),
		RushYardPoints:      val(0.1, "rush_yard_points"),
		RushTDPoints:        val(6, "rush_td_points"),
		ReceptionPoints:     val(0.5, "reception_points"),
		ReceivingYardPoints: val(0.1, "receiving_yard_points"),
		ReceivingTDPoints:   val(6, "receiving_td_points"),
		FumblePoints:        val(-2, "fumble_points"),

		DSTSackPoints:           val(1, "sack_points", "dst_sack_points"),
		DSTInterceptionPoints:   val(2, "int_points", "dst_interception_points"),
		DSTFumbleRecoveryPoints: val(2, "fumble_recovery_points", "dst_fumble_recovery_points"),
		DSTTouchdownPoints:      val(6, "defensive_td_points", "dst_touchdown_points"),
		DSTSafetyPoints:         val(2, "safety_points", "dst_safety_points"),

		DSTTiers: [7]float64{
			val(10, "dst_shutout_points", "dst_points_allowed_0_points"),
			val(7, "dst_1to6_points", "dst_points_allowed_1_6_points"),
			val(4, "dst_7to13_points", "dst_points_allowed_7_13_points"),
			val(1, "dst_14to20_points", "dst_points_allowed_14_20_points"),
			val(0, "dst_21to27_points", "dst_points_allowed_21_27_points"),
			val(-1, "dst_28to34_points", "dst_points_allowed_28_34_points"),
			val(-4, "dst_35plus_points", "dst_points_allowed_35_points"),
		},

		DSTUnder100Bonus: val(0, "dst_under100_bonus"),
		DSTUnder300Bonus: val(0, "dst_under300_bonus"),
	}
}

// toFloat coerces the driver-dependent cell types a SELECT * can produce.
func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
