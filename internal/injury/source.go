package injury

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/fantasygrid/gameday/internal/types"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// Source supplies injury snapshots. The orchestrator tolerates failures:
// a dead source degrades to unadjusted predictions.
type Source interface {
	CurrentInjuries(ctx context.Context) ([]types.InjuryRecord, error)
	HistoricalInjuries(ctx context.Context, season, week int) ([]types.InjuryRecord, error)
}

// injuryStore is the repository slice the DB source reads.
type injuryStore interface {
	LatestInjuries(ctx context.Context) ([]types.InjuryRecord, error)
	HistoricalInjuries(ctx context.Context, season, week int) ([]types.InjuryRecord, error)
}

// DBSource serves injuries from the ingested historical table.
type DBSource struct {
	store injuryStore
}

func NewDBSource(store injuryStore) *DBSource {
	return &DBSource{store: store}
}

func (s *DBSource) CurrentInjuries(ctx context.Context) ([]types.InjuryRecord, error) {
	return s.store.LatestInjuries(ctx)
}

func (s *DBSource) HistoricalInjuries(ctx context.Context, season, week int) ([]types.InjuryRecord, error) {
	return s.store.HistoricalInjuries(ctx, season, week)
}

// HTTPSource pulls the live league-wide report from an ESPN-style feed.
// A circuit breaker keeps a flapping feed from stalling every request and
// the limiter stays inside the feed's informal rate expectations.
type HTTPSource struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	db      *DBSource
	log     *logrus.Entry
}

// NewHTTPSource builds a feed-backed source. When fallback is non-nil,
// historical lookups and feed outages fall through to the database.
func NewHTTPSource(url string, timeout time.Duration, requestsPerSecond float64, fallback *DBSource) *HTTPSource {
	log := logger.WithComponent("injury_feed")
	settings := gobreaker.Settings{
		Name:    "injury-feed",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).
				Warn("Injury feed breaker state changed")
		},
	}
	return &HTTPSource{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		db:      fallback,
		log:     log,
	}
}

func (s *HTTPSource) CurrentInjuries(ctx context.Context) ([]types.InjuryRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		if s.db != nil {
			s.log.WithError(err).Warn("Injury feed unavailable, falling back to database")
			return s.db.CurrentInjuries(ctx)
		}
		return nil, err
	}
	return result.([]types.InjuryRecord), nil
}

// HistoricalInjuries always comes from the database; the feed only knows
// the present.
func (s *HTTPSource) HistoricalInjuries(ctx context.Context, season, week int) ([]types.InjuryRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("injury feed has no historical data: %w", types.ErrNotFound)
	}
	return s.db.HistoricalInjuries(ctx, season, week)
}

// Feed shapes. The entry's top-level displayName is the team; the player
// comes from the athlete nested inside each injury.
type feedPayload struct {
	Injuries []feedEntry `json:"injuries"`
}

type feedEntry struct {
	DisplayName string       `json:"displayName"`
	Injuries    []feedInjury `json:"injuries"`
}

type feedInjury struct {
	Status struct {
		Name string `json:"name"`
	} `json:"status"`
	Date    string `json:"date"`
	Athlete struct {
		DisplayName string `json:"displayName"`
		Position    struct {
			Abbreviation string `json:"abbreviation"`
		} `json:"position"`
		Team struct {
			Abbreviation string `json:"abbreviation"`
			DisplayName  string `json:"displayName"`
		} `json:"team"`
	} `json:"athlete"`
	Details struct {
		Type          string `json:"type"`
		Location      string `json:"location"`
		FantasyStatus struct {
			Description string `json:"description"`
		} `json:"fantasyStatus"`
	} `json:"details"`
}

func (s *HTTPSource) fetch(ctx context.Context) ([]types.InjuryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch injuries: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("injury feed returned %d", resp.StatusCode)
	}

	var payload feedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode injury feed: %w", err)
	}

	var records []types.InjuryRecord
	for _, entry := range payload.Injuries {
		for _, inj := range entry.Injuries {
			if inj.Athlete.DisplayName == "" {
				continue
			}
			team := inj.Athlete.Team.Abbreviation
			if team == "" {
				team = entry.DisplayName
			}
			rec := types.InjuryRecord{
				Team:          team,
				Position:      inj.Athlete.Position.Abbreviation,
				FullName:      inj.Athlete.DisplayName,
				ReportStatus:  inj.Status.Name,
				FantasyStatus: inj.Details.FantasyStatus.Description,
				PrimaryInjury: inj.Details.Type,
			}
			if ts, err := time.Parse(time.RFC3339, inj.Date); err == nil {
				rec.DateModified = ts
			} else {
				rec.DateModified = time.Now().UTC()
			}
			records = append(records, rec)
		}
	}
	s.log.WithField("records", len(records)).Info("Injury feed fetched")
	return records, nil
}
