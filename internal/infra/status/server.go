package status

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"recurring_message_bot/internal/app"
	"recurring_message_bot/internal/domain/schedule"
	idb "recurring_message_bot/internal/infra/database"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Counters aggregates tick activity for the /status endpoint.
type Counters struct {
	TicksRun    atomic.Uint64
	RulesFired  atomic.Uint64
	TicksFailed atomic.Uint64
}

// countingDispatcher wraps a Dispatcher so that every tick, however it was
// triggered, lands in the same counters.
type countingDispatcher struct {
	inner    app.Dispatcher
	counters *Counters
}

// CountTicks decorates d with counter bookkeeping.
func CountTicks(d app.Dispatcher, c *Counters) app.Dispatcher {
	return &countingDispatcher{inner: d, counters: c}
}

func (d *countingDispatcher) RunTick(ctx context.Context, asOf schedule.Date) (int, error) {
	fired, err := d.inner.RunTick(ctx, asOf)
	d.counters.TicksRun.Add(1)
	d.counters.RulesFired.Add(uint64(fired))
	if err != nil {
		d.counters.TicksFailed.Add(1)
	}
	return fired, err
}

// Server provides the operational HTTP surface: health and status probes
// plus a manual dispatch trigger for admins.
type Server struct {
	startTime  time.Time
	httpServer *http.Server
	db         *sql.DB
	dispatcher app.Dispatcher
	ruleSvc    *app.RuleService
	clock      schedule.Clock
	counters   *Counters
	logger     *logrus.Logger
}

func NewServer(
	port int,
	db *sql.DB,
	dispatcher app.Dispatcher,
	ruleSvc *app.RuleService,
	clock schedule.Clock,
	counters *Counters,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		startTime:  time.Now(),
		db:         db,
		dispatcher: dispatcher,
		ruleSvc:    ruleSvc,
		clock:      clock,
		counters:   counters,
		logger:     logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/rules", s.handleListRules).Methods(http.MethodGet)
	router.HandleFunc("/tick", s.handleTick).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	return s
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	s.logger.Infof("Starting status server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Status server error: %v", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := idb.Ping(r.Context(), s.db); err != nil {
		s.logger.Errorf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "recurring-message-bot",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"today":          schedule.Today(s.clock).String(),
		"metrics": map[string]uint64{
			"ticks_run":    s.counters.TicksRun.Load(),
			"rules_fired":  s.counters.RulesFired.Load(),
			"ticks_failed": s.counters.TicksFailed.Load(),
		},
	})
}

type ruleView struct {
	ID             string  `json:"id"`
	TargetChannel  string  `json:"target_channel"`
	Pattern        string  `json:"pattern"`
	Interval       int     `json:"interval"`
	DaysOfWeek     []int   `json:"days_of_week,omitempty"`
	StartDate      string  `json:"start_date"`
	EndDate        *string `json:"end_date,omitempty"`
	Active         bool    `json:"active"`
	LastFiredAt    *string `json:"last_fired_at,omitempty"`
	NextOccurrence *string `json:"next_occurrence,omitempty"`
}

// handleListRules renders every rule with its advisory next occurrence.
// This is the display surface for the calculator; firing decisions never
// read it.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	overviews, err := s.ruleSvc.List(r.Context())
	if err != nil {
		s.logger.Errorf("Failed to list rules: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rules"})
		return
	}

	views := make([]ruleView, 0, len(overviews))
	for _, o := range overviews {
		v := ruleView{
			ID:            o.Rule.ID.String(),
			TargetChannel: o.Rule.TargetChannel,
			Pattern:       string(o.Rule.Pattern),
			Interval:      o.Rule.Interval,
			DaysOfWeek:    o.Rule.DaysOfWeek,
			StartDate:     o.Rule.StartDate.String(),
			Active:        o.Rule.Active,
		}
		if o.Rule.EndDate != nil {
			end := o.Rule.EndDate.String()
			v.EndDate = &end
		}
		if o.Rule.LastFiredAt.Valid {
			fired := o.Rule.LastFiredAt.Time.Format(time.RFC3339)
			v.LastFiredAt = &fired
		}
		if o.NextOccurrence != nil {
			next := o.NextOccurrence.String()
			v.NextOccurrence = &next
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": views})
}

// handleTick runs one dispatch tick immediately. The evaluation date
// defaults to today and can be overridden with ?as_of=YYYY-MM-DD.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	asOf := schedule.Today(s.clock)
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := schedule.ParseDate(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		asOf = parsed
	}

	s.logger.Infof("Manual tick triggered for %s", asOf)
	fired, err := s.dispatcher.RunTick(r.Context(), asOf)
	if err != nil {
		s.logger.Errorf("Manual tick for %s failed: %v", asOf, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"as_of": asOf.String(), "fired": fired})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
