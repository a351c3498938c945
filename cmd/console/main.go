package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"synthdesk/config"
	"synthdesk/internal/auth"
	"synthdesk/internal/bus"
	"synthdesk/internal/gateway"
	"synthdesk/internal/logger"
	"synthdesk/internal/metrics"
	"synthdesk/internal/model"
	"synthdesk/internal/notification"
	"synthdesk/internal/orders"
	"synthdesk/internal/pipeline"
	dsignal "synthdesk/internal/signal"
	redisstore "synthdesk/internal/store/redis"
	sqlitestore "synthdesk/internal/store/sqlite"
	"synthdesk/internal/stream"
	"synthdesk/internal/view"
)

// streamManager holds the current broker session. Reconnecting replaces the
// session wholesale; there is no automatic retry.
type streamManager struct {
	mu      sync.Mutex
	current *stream.Session
	build   func() *stream.Session
}

func (m *streamManager) session() *stream.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *streamManager) Connected() bool {
	s := m.session()
	return s != nil && s.Connected()
}

func (m *streamManager) PlaceOrder(req stream.OrderRequest) error {
	s := m.session()
	if s == nil {
		return stream.ErrNotConnected
	}
	return s.PlaceOrder(req)
}

// Reconnect closes any existing session and opens a fresh one.
func (m *streamManager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	old := m.current
	m.current = m.build()
	fresh := m.current
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return fresh.Open(ctx)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("console", slog.LevelInfo)
	log.Println("[console] starting...")

	cfg := config.Load()

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetActive(cfg.DefaultInstrument, cfg.TimeframeSec)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Trade ledger (sqlite) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	ledger, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[console] sqlite init failed: %v", err)
	}
	defer ledger.Close()

	// ---- Redis publisher (optional) ----
	var publisher *redisstore.Publisher
	var flags auth.FlagReader
	publisher, err = redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[console] WARNING: redis init failed: %v (continuing without redis)", err)
		publisher = nil
	} else {
		flags = redisstore.NewFlagStore(publisher.Client())
	}

	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Client(), ledger.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, ledger.DB(), 10*time.Second)
	}

	// ---- Notifier ----
	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.WebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
	}
	notify := func(alert notification.Alert) {
		go func() {
			sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer sendCancel()
			if err := notifier.Send(sendCtx, alert); err != nil {
				log.Printf("[console] notify failed: %v", err)
			}
		}()
	}

	// ---- Gateway hub ----
	hub := gateway.NewHub()
	hub.OnClientCount = func(n int) { prom.WSClients.Set(float64(n)) }
	if cfg.ConsolePassword != "" {
		hub.Checker = auth.NewTOTPChecker(cfg.ConsoleUser, cfg.ConsolePassword, cfg.ConsoleTOTPSecret, auth.RoleTrader)
	} else {
		log.Println("[console] WARNING: CONSOLE_PASSWORD not set, ws auth disabled")
	}

	// ---- Pipeline ----
	pipe := pipeline.New(pipeline.Config{
		Instrument:   cfg.DefaultInstrument,
		TimeframeSec: cfg.TimeframeSec,
		PipDigits:    cfg.PipDigits,
		TickCap:      cfg.TickCap,
		CandleCap:    cfg.CandleCap,
	}, pipeline.Hooks{
		OnBadTick:   func() { prom.BadTicks.Inc() },
		OnLateTick:  func() { prom.LateTicks.Inc() },
		OnDeriveDur: prom.DeriveDur.Observe,
		OnSignal: func(s dsignal.Signal) {
			prom.SignalsTotal.Inc()
			hub.Broadcast("signal", s)
			if publisher != nil {
				publisher.PublishSignal(ctx, s)
			}
		},
		OnSniper: func(s dsignal.Signal) {
			prom.SniperEntries.Inc()
			hub.Broadcast("sniper", s)
			notify(notification.SniperEntry(s))
		},
	})

	// ---- Stream session + order tracker ----
	manager := &streamManager{}
	tracker := orders.NewTracker(manager, ledger, orders.Config{
		Currency:  "USD",
		PipDigits: cfg.PipDigits,
	})
	tracker.OnFlash = func(ord model.TradeOrder) {
		outcome := "lost"
		if ord.State == model.OrderWon {
			outcome = "won"
		}
		prom.OrdersSettled.WithLabelValues(outcome).Inc()
		hub.Broadcast("order_flash", ord)
		hub.Broadcast("orders", tracker.Orders())
		notify(notification.TradeFlash(ord))
	}

	tickCh := make(chan model.Tick, 10000)

	manager.build = func() *stream.Session {
		s := stream.New(stream.Config{
			URL:   cfg.BrokerWSURL,
			AppID: cfg.BrokerAppID,
			Token: cfg.BrokerToken,
		})
		s.OnAuthorized = func(msg stream.AuthorizeMsg) {
			log.Printf("[console] authorized as %s (%s)", msg.LoginID, msg.Currency)
			health.SetStreamConnected(true)
			prom.StreamConnected.Set(1)
			if err := s.SubscribeTicks(pipe.Instrument()); err != nil {
				log.Printf("[console] subscribe ticks: %v", err)
			}
			if err := s.SubscribeBalance(); err != nil {
				log.Printf("[console] subscribe balance: %v", err)
			}
			hub.Broadcast("status", map[string]interface{}{"connected": true})
		}
		s.OnTick = func(t model.Tick) {
			prom.TicksTotal.Inc()
			health.SetLastTickTime(time.Now())
			select {
			case tickCh <- t:
			default:
				prom.BadTicks.Inc()
				log.Printf("[console] tick channel full, dropping %s@%d", t.Instrument, t.Epoch)
			}
		}
		s.OnBalance = func(b stream.BalanceMsg) {
			hub.Broadcast("balance", b)
		}
		s.OnBuyAck = tracker.HandleBuyAck
		s.OnContract = tracker.HandleContract
		s.OnError = func(code, message string) {
			log.Printf("[console] stream error %s: %s", code, message)
			if code == "transport" {
				prom.StreamDrops.Inc()
				notify(notification.ConnectionLost(code, message))
				return
			}
			hub.Broadcast("error", map[string]string{"code": code, "message": message})
		}
		s.OnClose = func() {
			health.SetStreamConnected(false)
			prom.StreamConnected.Set(0)
			hub.Broadcast("status", map[string]interface{}{"connected": false})
		}
		return s
	}

	if err := manager.Reconnect(ctx); err != nil {
		log.Printf("[console] initial connect failed: %v (use the reconnect command)", err)
	}

	// ---- Fan-out: pipeline updates → gateway + redis ----
	updateCh := make(chan model.Update, 5000)
	fanout := bus.New(5000)
	fanout.OnDrop = func(idx int) {
		prom.FanoutDropsTotal.WithLabelValues(strconv.Itoa(idx)).Inc()
	}

	gatewayCh := fanout.Subscribe()
	var redisCh <-chan model.Update
	if publisher != nil {
		redisCh = fanout.Subscribe()
	}

	go fanout.Run(ctx, updateCh)
	go pipe.Run(ctx, tickCh, updateCh)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-gatewayCh:
				if !ok {
					return
				}
				if upd.Appended {
					prom.CandlesTotal.Inc()
				}
				hub.Broadcast("update", upd)
			}
		}
	}()
	if publisher != nil && redisCh != nil {
		go publisher.Run(ctx, redisCh)
	}

	// ---- UI command routing ----
	broadcastSnapshot := func() {
		hub.Broadcast("snapshot", map[string]interface{}{
			"instrument":    pipe.Instrument(),
			"timeframe_sec": pipe.TimeframeSec(),
			"candles":       pipe.Candles(),
			"prices":        pipe.Prices(),
			"digits":        pipe.Digits(),
			"view":          pipe.ViewState(),
		})
	}

	hub.OnCommand = func(c *gateway.Client, cmd gateway.Command) {
		switch cmd.Type {
		case gateway.CmdMode:
			pipe.SetMode(viewMode(cmd.Mode))
			hub.Broadcast("view", pipe.ViewState())
		case gateway.CmdZoom:
			pipe.Zoom(cmd.Factor, cmd.Ratio)
			hub.Broadcast("view", pipe.ViewState())
		case gateway.CmdPanStart:
			pipe.BeginDrag()
		case gateway.CmdPan:
			pipe.Drag(cmd.DX, cmd.Width)
			hub.Broadcast("view", pipe.ViewState())
		case gateway.CmdGoLive:
			pipe.GoLive()
			hub.Broadcast("view", pipe.ViewState())

		case gateway.CmdInstrument:
			if s := manager.session(); s != nil && s.Connected() {
				if err := s.UnsubscribeAllTicks(); err != nil {
					log.Printf("[console] forget ticks: %v", err)
				}
				if err := s.SubscribeTicks(cmd.Instrument); err != nil {
					c.SendError("subscribe failed: " + err.Error())
					return
				}
			}
			pipe.SwitchInstrument(cmd.Instrument)
			health.SetActive(pipe.Instrument(), pipe.TimeframeSec())
			broadcastSnapshot()
		case gateway.CmdTimeframe:
			pipe.SwitchTimeframe(cmd.TimeframeSec)
			health.SetActive(pipe.Instrument(), pipe.TimeframeSec())
			broadcastSnapshot()

		case gateway.CmdOrder:
			if flags != nil {
				flagCtx, flagCancel := context.WithTimeout(ctx, 2*time.Second)
				enabled, err := flags.Enabled(flagCtx, "live_orders")
				flagCancel()
				if err == nil && !enabled {
					c.SendError("live orders disabled by operator")
					return
				}
			}
			corr, err := tracker.Submit(pipe.Instrument(), model.ContractType(cmd.ContractType),
				cmd.Digit, cmd.Stake, cmd.DurationTicks)
			if err != nil {
				c.SendError(err.Error())
				return
			}
			prom.OrdersPlaced.Inc()
			log.Printf("[console] order submitted corr=%s", corr)
			hub.Broadcast("orders", tracker.Orders())
		case gateway.CmdClearOrders:
			tracker.Clear()
			hub.Broadcast("orders", tracker.Orders())

		case gateway.CmdReconnect:
			if err := manager.Reconnect(ctx); err != nil {
				c.SendError("reconnect failed: " + err.Error())
			}
		}
	}

	// ---- UI websocket server ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	uiSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[console] ui server listening on %s", cfg.ListenAddr)
		if err := uiSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[console] ui server error: %v", err)
		}
	}()

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[console] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	uiSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if s := manager.session(); s != nil {
		s.Close()
	}
	if publisher != nil {
		publisher.Close()
	}
	log.Println("[console] shutdown complete.")
}

func viewMode(s string) view.Mode {
	if s == "line" {
		return view.ModeLine
	}
	return view.ModeCandles
}
