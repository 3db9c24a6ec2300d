package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recurring_message_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	lastAsOf schedule.Date
	fired    int
	err      error
}

func (d *fakeDispatcher) RunTick(_ context.Context, asOf schedule.Date) (int, error) {
	d.lastAsOf = asOf
	return d.fired, d.err
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestServer(d *fakeDispatcher, counters *Counters) *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)
	clock := &fixedClock{now: time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)}
	return NewServer(0, nil, d, nil, clock, counters, log)
}

func TestHandleTick_DefaultsToToday(t *testing.T) {
	dispatcher := &fakeDispatcher{fired: 3}
	srv := newTestServer(dispatcher, &Counters{})

	req := httptest.NewRequest(http.MethodPost, "/tick", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, schedule.MustParseDate("2024-03-05"), dispatcher.lastAsOf)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-05", body["as_of"])
	assert.Equal(t, float64(3), body["fired"])
}

func TestHandleTick_AsOfOverride(t *testing.T) {
	dispatcher := &fakeDispatcher{fired: 1}
	srv := newTestServer(dispatcher, &Counters{})

	req := httptest.NewRequest(http.MethodPost, "/tick?as_of=2024-04-01", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, schedule.MustParseDate("2024-04-01"), dispatcher.lastAsOf)
}

func TestHandleTick_BadDate(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	srv := newTestServer(dispatcher, &Counters{})

	req := httptest.NewRequest(http.MethodPost, "/tick?as_of=01.04.2024", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, schedule.Date{}, dispatcher.lastAsOf, "dispatcher must not run on a bad date")
}

func TestHandleTick_DispatchError(t *testing.T) {
	dispatcher := &fakeDispatcher{err: fmt.Errorf("store down")}
	srv := newTestServer(dispatcher, &Counters{})

	req := httptest.NewRequest(http.MethodPost, "/tick", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCountTicks(t *testing.T) {
	counters := &Counters{}
	counted := CountTicks(&fakeDispatcher{fired: 2}, counters)

	_, err := counted.RunTick(context.Background(), schedule.MustParseDate("2024-03-05"))
	require.NoError(t, err)
	_, err = counted.RunTick(context.Background(), schedule.MustParseDate("2024-03-06"))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), counters.TicksRun.Load())
	assert.Equal(t, uint64(4), counters.RulesFired.Load())
	assert.Equal(t, uint64(0), counters.TicksFailed.Load())

	failing := CountTicks(&fakeDispatcher{err: fmt.Errorf("boom")}, counters)
	_, err = failing.RunTick(context.Background(), schedule.MustParseDate("2024-03-07"))
	require.Error(t, err)
	assert.Equal(t, uint64(1), counters.TicksFailed.Load())
}

func TestHandleStatus_ReportsCounters(t *testing.T) {
	counters := &Counters{}
	counters.TicksRun.Add(5)
	counters.RulesFired.Add(12)
	srv := newTestServer(&fakeDispatcher{}, counters)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Service string `json:"service"`
		Today   string `json:"today"`
		Metrics struct {
			TicksRun   uint64 `json:"ticks_run"`
			RulesFired uint64 `json:"rules_fired"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "recurring-message-bot", body.Service)
	assert.Equal(t, "2024-03-05", body.Today)
	assert.Equal(t, uint64(5), body.Metrics.TicksRun)
	assert.Equal(t, uint64(12), body.Metrics.RulesFired)
}
