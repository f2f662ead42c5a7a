// Package injury turns weekly injury reports into prediction adjustments:
// reductions for the injured player, uplifts for the opposing defense.
package injury

import (
	"strings"

	"github.com/fantasygrid/gameday/internal/types"
)

// IsOut reports whether a player is definitively unavailable.
func IsOut(rec types.InjuryRecord) bool {
	return rec.ReportStatus == "Out" || strings.EqualFold(rec.FantasyStatus, "INACTIVE")
}

// IsQuestionable covers the uncertain statuses short of Out.
func IsQuestionable(rec types.InjuryRecord) bool {
	return rec.ReportStatus == "Questionable" || rec.ReportStatus == "Doubtful"
}

// Severity is the multiplicative reduction applied to a projection:
// 0 means no impact, 1 means fully out.
func Severity(rec types.InjuryRecord) float64 {
	switch {
	case IsOut(rec):
		return 1.0
	case rec.ReportStatus == "Doubtful":
		return 0.8
	case rec.ReportStatus == "Questionable":
		return 0.3
	default:
		return 0.0
	}
}
