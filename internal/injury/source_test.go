package injury

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `{
  "injuries": [
    {
      "displayName": "Philadelphia Eagles",
      "injuries": [
        {
          "status": {"name": "Out"},
          "date": "2025-11-02T18:00:00Z",
          "athlete": {
            "displayName": "Jalen Hurts",
            "position": {"abbreviation": "QB"},
            "team": {"abbreviation": "PHI", "displayName": "Philadelphia Eagles"}
          },
          "details": {
            "type": "Ankle",
            "location": "Leg",
            "fantasyStatus": {"description": "INACTIVE"}
          }
        },
        {
          "status": {"name": "Questionable"},
          "athlete": {
            "displayName": "AJ Brown",
            "position": {"abbreviation": "WR"},
            "team": {"abbreviation": "PHI"}
          },
          "details": {"type": "Hamstring"}
        }
      ]
    }
  ]
}`

func TestHTTPSourceParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedFixture))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, 100, nil)
	records, err := src.CurrentInjuries(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Jalen Hurts", records[0].FullName)
	assert.Equal(t, "PHI", records[0].Team)
	assert.Equal(t, "QB", records[0].Position)
	assert.Equal(t, "Out", records[0].ReportStatus)
	assert.Equal(t, "INACTIVE", records[0].FantasyStatus)
	assert.Equal(t, 2025, records[0].DateModified.Year())
	assert.True(t, IsOut(records[0]))

	assert.Equal(t, "AJ Brown", records[1].FullName)
	assert.Equal(t, 0.3, Severity(records[1]))
}

func TestHTTPSourceErrorsWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, 100, nil)
	_, err := src.CurrentInjuries(context.Background())
	require.Error(t, err)
}

func TestHTTPSourceBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, 1000, nil)
	for i := 0; i < 5; i++ {
		_, err := src.CurrentInjuries(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, 3, calls, "breaker stops hitting the feed after three straight failures")
}
