// Package stream owns the single bidirectional websocket session to the
// broker. It authorizes, subscribes to tick and balance streams, submits
// digit-contract purchases, and dispatches inbound messages to callbacks.
//
// The session has an explicit lifecycle: New, Open, Close. All writes go
// through one mutex; a single goroutine reads. There is no automatic
// reconnection: a transport failure closes the session and the owner must
// Open a fresh one.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"synthdesk/internal/model"
)

// ErrNotConnected is returned when a request is issued on a session that is
// not open and authorized.
var ErrNotConnected = errors.New("stream: session not connected")

// Config holds the broker endpoint and credential.
type Config struct {
	URL   string // websocket endpoint
	AppID string // appended as app_id query parameter
	Token string // API token sent in the authorize request
}

// Session is one socket session. Callbacks are invoked from the session's
// read goroutine, which serializes all inbound handling.
type Session struct {
	cfg    Config
	dialer *websocket.Dialer

	mu         sync.Mutex
	conn       *websocket.Conn
	authorized bool
	closing    bool

	// Callbacks (optional, set before Open)
	OnAuthorized func(AuthorizeMsg)
	OnTick       func(model.Tick)
	OnBalance    func(BalanceMsg)
	OnBuyAck     func(contractID int64, correlationID string)
	OnContract   func(ContractMsg)
	OnError      func(code, message string)
	OnClose      func()
}

// New creates an unopened session.
func New(cfg Config) *Session {
	return &Session{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
	}
}

// Open dials the broker, sends the authorize request and starts the read
// loop. The session reports readiness via OnAuthorized.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return errors.New("stream: session already open")
	}
	s.closing = false
	s.mu.Unlock()

	url := s.cfg.URL
	if s.cfg.AppID != "" {
		url += "?app_id=" + s.cfg.AppID
	}
	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("stream: dial %s: %w", s.cfg.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop()

	return s.writeJSON(authorizeReq{Authorize: s.cfg.Token})
}

// Connected reports whether the session is open and authorized.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && s.authorized
}

// SubscribeTicks starts the tick stream for one instrument.
func (s *Session) SubscribeTicks(symbol string) error {
	return s.writeJSON(ticksReq{Ticks: symbol, Subscribe: 1})
}

// UnsubscribeAllTicks stops every active tick stream.
func (s *Session) UnsubscribeAllTicks() error {
	return s.writeJSON(forgetAllReq{ForgetAll: "ticks"})
}

// SubscribeBalance starts the balance stream.
func (s *Session) SubscribeBalance() error {
	return s.writeJSON(balanceReq{Balance: 1, Subscribe: 1})
}

// PlaceOrder submits a digit-contract purchase tagged with the caller's
// correlation id so the eventual settlement can be matched back.
func (s *Session) PlaceOrder(req OrderRequest) error {
	return s.writeJSON(buyReq{
		Buy:         "1",
		Price:       req.Amount,
		Parameters:  req,
		Passthrough: passthrough{CorrelationID: req.CorrelationID},
	})
}

// Close shuts the session down. Idempotent and safe on a never-opened
// session. After Close no further callbacks are emitted for this session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closing || s.conn == nil {
		s.closing = true
		s.mu.Unlock()
		return
	}
	s.closing = true
	conn := s.conn
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	s.mu.Unlock()
}

// writeJSON serializes one outbound request. All writes share a mutex so
// concurrent callers cannot interleave frames.
func (s *Session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closing {
		return ErrNotConnected
	}
	return s.conn.WriteJSON(v)
}

// readLoop reads until the transport fails or the session is closed, and
// dispatches each message to the matching callback.
func (s *Session) readLoop() {
	defer s.teardown()

	for {
		s.mu.Lock()
		conn := s.conn
		closing := s.closing
		s.mu.Unlock()
		if conn == nil || closing {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			deliberate := s.closing
			s.mu.Unlock()
			if !deliberate && s.OnError != nil {
				s.OnError("transport", err.Error())
			}
			return
		}

		env, err := decodeEnvelope(data)
		if err != nil {
			log.Printf("[stream] bad frame: %v", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env envelope) {
	if env.Error != nil {
		if s.OnError != nil {
			s.OnError(env.Error.Code, env.Error.Message)
		}
		return
	}

	switch env.MsgType {
	case "authorize":
		s.mu.Lock()
		s.authorized = true
		s.mu.Unlock()
		if env.Authorize != nil && s.OnAuthorized != nil {
			s.OnAuthorized(*env.Authorize)
		}
	case "tick":
		if env.Tick != nil && s.OnTick != nil {
			s.OnTick(model.Tick{
				Instrument: env.Tick.Symbol,
				Price:      env.Tick.Quote,
				Epoch:      env.Tick.Epoch,
			})
		}
	case "balance":
		if env.Balance != nil && s.OnBalance != nil {
			s.OnBalance(*env.Balance)
		}
	case "buy":
		if env.Buy != nil && s.OnBuyAck != nil {
			corr := ""
			if env.Passthrough != nil {
				corr = env.Passthrough.CorrelationID
			}
			s.OnBuyAck(env.Buy.ContractID, corr)
		}
	case "proposal_open_contract":
		if env.ProposalOpenContract != nil && s.OnContract != nil {
			s.OnContract(*env.ProposalOpenContract)
		}
	}
}

// teardown marks the session closed and emits OnClose exactly once per open.
func (s *Session) teardown() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.authorized = false
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if s.OnClose != nil {
		s.OnClose()
	}
}
