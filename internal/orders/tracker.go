// Package orders tracks digit-contract purchases from submission through
// settlement. Orders are correlated by a locally generated id carried in the
// broker passthrough, so late settlement updates can always be matched back
// to the order that produced them.
package orders

import (
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"synthdesk/internal/model"
	"synthdesk/internal/stream"
)

var (
	// ErrNotConnected is returned when Submit is called without an open
	// broker session.
	ErrNotConnected = errors.New("orders: not connected")

	// ErrNoDigit is returned when the contract type requires a digit barrier
	// and none was given.
	ErrNoDigit = errors.New("orders: digit barrier must be 0..9")

	// ErrBadStake is returned for a non-positive stake.
	ErrBadStake = errors.New("orders: stake must be positive")
)

// pendingCap bounds the contract-id map so a burst of unresolved
// acknowledgements cannot grow it without limit. When full, the oldest
// unresolved mapping is evicted.
const pendingCap = 256

// Placer submits purchase requests. *stream.Session satisfies it.
type Placer interface {
	Connected() bool
	PlaceOrder(stream.OrderRequest) error
}

// Journal persists order lifecycle events. Implementations must tolerate
// being called from the tracker's lock; keep writes quick.
type Journal interface {
	RecordOrder(model.TradeOrder) error
	RecordSettlement(correlationID string, state model.OrderState, digit int, profit float64) error
}

// Config holds the static order parameters.
type Config struct {
	Currency  string // e.g. "USD"
	PipDigits int    // decimal places used to derive the settlement digit
}

// Tracker owns the in-memory order ledger. All methods are safe for
// concurrent use.
type Tracker struct {
	placer  Placer
	journal Journal
	cfg     Config

	// OnFlash is invoked with a settled order, for UI win/loss flashes.
	OnFlash func(model.TradeOrder)

	mu      sync.Mutex
	ledger  []*model.TradeOrder // newest first
	pending map[int64]string    // contract id -> correlation id
	order   []int64             // pending insertion order, oldest first
}

// NewTracker creates a tracker. journal may be nil.
func NewTracker(placer Placer, journal Journal, cfg Config) *Tracker {
	return &Tracker{
		placer:  placer,
		journal: journal,
		cfg:     cfg,
		pending: make(map[int64]string),
	}
}

// Submit validates and sends one digit-contract purchase. It returns the
// correlation id the settlement will be reported under.
func (t *Tracker) Submit(instrument string, contractType model.ContractType, digit int, stake float64, durationTicks int) (string, error) {
	if !t.placer.Connected() {
		return "", ErrNotConnected
	}
	if digit < 0 || digit > 9 {
		return "", ErrNoDigit
	}
	if stake <= 0 {
		return "", ErrBadStake
	}
	if durationTicks < 1 {
		durationTicks = 1
	}

	corr := uuid.NewString()
	req := stream.OrderRequest{
		Amount:        stake,
		Basis:         "stake",
		ContractType:  string(contractType),
		Currency:      t.cfg.Currency,
		Symbol:        instrument,
		Duration:      durationTicks,
		DurationUnit:  "t",
		Barrier:       strconv.Itoa(digit),
		CorrelationID: corr,
	}
	if err := t.placer.PlaceOrder(req); err != nil {
		return "", err
	}

	ord := &model.TradeOrder{
		CorrelationID: corr,
		Instrument:    instrument,
		ContractType:  contractType,
		Digit:         digit,
		Stake:         stake,
		DurationTicks: durationTicks,
		State:         model.OrderPending,
		CreatedAt:     time.Now().UTC(),
	}

	t.mu.Lock()
	t.ledger = append([]*model.TradeOrder{ord}, t.ledger...)
	t.mu.Unlock()

	if t.journal != nil {
		if err := t.journal.RecordOrder(*ord); err != nil {
			log.Printf("[orders] journal order %s: %v", corr, err)
		}
	}
	return corr, nil
}

// HandleBuyAck binds the broker-assigned contract id to our correlation id.
// An ack without a correlation id cannot be matched later and is dropped.
func (t *Tracker) HandleBuyAck(contractID int64, correlationID string) {
	if correlationID == "" {
		log.Printf("[orders] buy ack for contract %d without correlation id", contractID)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[contractID]; !ok {
		t.order = append(t.order, contractID)
	}
	t.pending[contractID] = correlationID

	for len(t.pending) > pendingCap && len(t.order) > 0 {
		oldest := t.order[0]
		t.order = t.order[1:]
		if corr, ok := t.pending[oldest]; ok {
			delete(t.pending, oldest)
			log.Printf("[orders] evicted unresolved contract %d (corr %s)", oldest, corr)
		}
	}
}

// HandleContract applies a streamed contract update. Only sold contracts
// settle an order; each order settles at most once. Updates for unknown
// contract ids are ignored.
func (t *Tracker) HandleContract(msg stream.ContractMsg) {
	if msg.IsSold == 0 {
		return
	}

	t.mu.Lock()
	corr, ok := t.pending[msg.ContractID]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.pending, msg.ContractID)
	for i, id := range t.order {
		if id == msg.ContractID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	var settled *model.TradeOrder
	for _, ord := range t.ledger {
		if ord.CorrelationID != corr {
			continue
		}
		if ord.State != model.OrderPending {
			break // already settled
		}
		digit := model.LastDigit(msg.ExitTick, t.cfg.PipDigits)
		profit := msg.Profit
		now := time.Now().UTC()

		ord.SettlementDigit = &digit
		ord.Profit = &profit
		ord.SettledAt = &now
		if profit > 0 {
			ord.State = model.OrderWon
		} else {
			ord.State = model.OrderLost
		}
		settled = ord
		break
	}
	t.mu.Unlock()

	if settled == nil {
		return
	}
	if t.journal != nil {
		if err := t.journal.RecordSettlement(corr, settled.State, *settled.SettlementDigit, *settled.Profit); err != nil {
			log.Printf("[orders] journal settlement %s: %v", corr, err)
		}
	}
	if t.OnFlash != nil {
		t.OnFlash(*settled)
	}
}

// Orders returns a copy of the ledger, newest first.
func (t *Tracker) Orders() []model.TradeOrder {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.TradeOrder, len(t.ledger))
	for i, ord := range t.ledger {
		out[i] = *ord
	}
	return out
}

// PendingCount reports how many submitted orders have not settled.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, ord := range t.ledger {
		if ord.State == model.OrderPending {
			n++
		}
	}
	return n
}

// Clear empties the ledger and forgets all contract mappings. Settlements
// arriving after Clear are ignored.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ledger = nil
	t.pending = make(map[int64]string)
	t.order = nil
}
