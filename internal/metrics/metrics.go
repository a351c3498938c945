package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the console core.
type Metrics struct {
	TicksTotal    prometheus.Counter
	CandlesTotal  prometheus.Counter
	SignalsTotal  prometheus.Counter
	LateTicks     prometheus.Counter
	BadTicks      prometheus.Counter
	StreamDrops   prometheus.Counter
	SniperEntries prometheus.Counter

	OrdersPlaced  prometheus.Counter
	OrdersSettled *prometheus.CounterVec // labels: outcome=won|lost

	DeriveDur prometheus.Histogram

	FanoutDropsTotal *prometheus.CounterVec // labels: subscriber

	WSClients       prometheus.Gauge
	StreamConnected prometheus.Gauge // 0=down, 1=up
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_ticks_total",
			Help: "Total ticks received from the broker stream",
		}),
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_candles_total",
			Help: "Total candles opened by the aggregator",
		}),
		SignalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_signals_total",
			Help: "Total analysis signals derived",
		}),
		LateTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_late_ticks_total",
			Help: "Ticks dropped for arriving behind the newest candle bucket",
		}),
		BadTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_bad_ticks_total",
			Help: "Ticks dropped for non-finite or unparseable prices",
		}),
		StreamDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_stream_drops_total",
			Help: "Unexpected broker stream disconnects",
		}),
		SniperEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_sniper_entries_total",
			Help: "Precision entry triggers fired",
		}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_orders_placed_total",
			Help: "Digit contracts submitted to the broker",
		}),
		OrdersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_orders_settled_total",
			Help: "Digit contracts settled (by outcome)",
		}, []string{"outcome"}),
		DeriveDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "console_signal_derive_duration_seconds",
			Help:    "Signal derivation latency per candle update",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_fanout_drops_total",
			Help: "Updates dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_ws_clients",
			Help: "Connected UI websocket clients",
		}),
		StreamConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_stream_connected",
			Help: "Broker stream state (0=down, 1=up)",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.CandlesTotal,
		m.SignalsTotal,
		m.LateTicks,
		m.BadTicks,
		m.StreamDrops,
		m.SniperEntries,
		m.OrdersPlaced,
		m.OrdersSettled,
		m.DeriveDur,
		m.FanoutDropsTotal,
		m.WSClients,
		m.StreamConnected,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	StreamConnected bool      `json:"stream_connected"`
	LastTickTime    time.Time `json:"last_tick_time"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	Instrument      string    `json:"instrument"`
	TimeframeSec    int       `json:"timeframe_sec"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetActive(instrument string, timeframeSec int) {
	h.mu.Lock()
	h.Instrument = instrument
	h.TimeframeSec = timeframeSec
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial probe and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.StreamConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		StreamConnected bool    `json:"stream_connected"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		Instrument      string  `json:"instrument"`
		TimeframeSec    int     `json:"timeframe_sec"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		StreamConnected: h.StreamConnected,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		Instrument:      h.Instrument,
		TimeframeSec:    h.TimeframeSec,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
