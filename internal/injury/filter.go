package injury

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// Filter adjusts predictions against one injury report snapshot. It only
// ever lowers projections; DST uplift lives in DSTBoost and is applied by
// the orchestrator.
type Filter struct {
	injuries []types.InjuryRecord
	outNames map[string]struct{}
	severity map[string]types.InjuryRecord
	log      *logrus.Entry
}

func NewFilter(injuries []types.InjuryRecord) *Filter {
	f := &Filter{
		injuries: injuries,
		outNames: make(map[string]struct{}),
		severity: make(map[string]types.InjuryRecord),
		log:      logger.WithComponent("injury"),
	}
	for _, rec := range injuries {
		key := strings.ToLower(rec.FullName)
		if IsOut(rec) {
			f.outNames[key] = struct{}{}
		}
		f.severity[key] = rec
	}
	return f
}

// FilterOut drops predictions whose player name matches an Out player,
// case-insensitively.
func (f *Filter) FilterOut(predictions []types.PlayerPrediction) []types.PlayerPrediction {
	kept := make([]types.PlayerPrediction, 0, len(predictions))
	removed := 0
	for _, p := range predictions {
		if _, out := f.outNames[strings.ToLower(p.PlayerName)]; out {
			removed++
			f.log.WithField("player", p.PlayerName).Info("Filtered OUT player")
			continue
		}
		kept = append(kept, p)
	}
	f.log.WithField("removed", removed).Info("OUT players filtered from predictions")
	return kept
}

// Adjust scales each matching prediction by (1 - severity) and records
// the reduction on the entry. Unmatched predictions pass through.
func (f *Filter) Adjust(predictions []types.PlayerPrediction) []types.PlayerPrediction {
	adjusted := make([]types.PlayerPrediction, 0, len(predictions))
	for _, p := range predictions {
		rec, ok := f.severity[strings.ToLower(p.PlayerName)]
		if ok {
			if s := Severity(rec); s > 0 {
				before := p.PredictedPoints
				p.PredictedPoints = before * (1.0 - s)
				p.InjuryAdjustment = s
				p.InjuryStatus = rec.ReportStatus
				f.log.WithFields(logrus.Fields{
					"player": p.PlayerName,
					"before": before,
					"after":  p.PredictedPoints,
				}).Info("Injury adjustment applied")
			}
		}
		adjusted = append(adjusted, p)
	}
	return adjusted
}

// TeamImpact groups a team's impactful injuries by position. Records with
// zero severity are skipped.
func TeamImpact(injuries []types.InjuryRecord, team string) map[string][]types.InjuryRecord {
	impact := make(map[string][]types.InjuryRecord)
	for _, rec := range injuries {
		if !strings.EqualFold(rec.Team, team) || Severity(rec) == 0 {
			continue
		}
		impact[rec.Position] = append(impact[rec.Position], rec)
	}
	return impact
}

// DSTBoost is the multiplicative uplift a defense earns from the
// opponent's injuries: a missing QB helps most, a hobbled line boosts
// sack chances. Capped at 25%.
func DSTBoost(opponentImpact map[string][]types.InjuryRecord) float64 {
	boost := 0.0
	for _, rec := range opponentImpact["QB"] {
		if IsOut(rec) {
			boost += 0.15
		} else if IsQuestionable(rec) {
			boost += 0.05
		}
	}
	for _, position := range []string{"C", "G", "T"} {
		for _, rec := range opponentImpact[position] {
			if IsOut(rec) {
				boost += 0.03
			}
		}
	}
	if boost > 0.25 {
		boost = 0.25
	}
	return boost
}

// Report is the gameday injury summary attached to orchestrator results.
type Report struct {
	Timestamp              time.Time                       `json:"timestamp"`
	TotalOut               int                             `json:"total_out"`
	TotalQuestionable      int                             `json:"total_questionable"`
	OutByPosition          map[string][]string             `json:"out_by_position"`
	QuestionableByPosition map[string][]string             `json:"questionable_by_position"`
	HighImpactTeams        []string                        `json:"high_impact_teams"`
}

// BuildReport summarizes an injury snapshot for the response payload.
func BuildReport(injuries []types.InjuryRecord) *Report {
	r := &Report{
		Timestamp:              time.Now().UTC(),
		OutByPosition:          make(map[string][]string),
		QuestionableByPosition: make(map[string][]string),
	}

	var out []types.InjuryRecord
	for _, rec := range injuries {
		switch {
		case IsOut(rec):
			out = append(out, rec)
			r.TotalOut++
			r.OutByPosition[rec.Position] = append(r.OutByPosition[rec.Position], rec.FullName)
		case IsQuestionable(rec):
			r.TotalQuestionable++
			r.QuestionableByPosition[rec.Position] = append(r.QuestionableByPosition[rec.Position], rec.FullName)
		}
	}

	r.HighImpactTeams = highImpactTeams(out)
	return r
}

// highImpactTeams flags teams whose Out list weighs heavily: QB counts
// triple, RB/WR double, TE one and a half. Threshold is a score above 3.
func highImpactTeams(out []types.InjuryRecord) []string {
	weights := map[string]float64{"QB": 3.0, "RB": 2.0, "WR": 2.0, "TE": 1.5, "K": 1.0}

	impact := make(map[string]float64)
	for _, rec := range out {
		w, ok := weights[rec.Position]
		if !ok {
			w = 1.0
		}
		impact[rec.Team] += w
	}

	var teams []string
	for team, score := range impact {
		if score > 3.0 {
			teams = append(teams, team)
		}
	}
	sort.Strings(teams)
	return teams
}
