package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthdesk/internal/model"
	"synthdesk/internal/stream"
)

type fakePlacer struct {
	connected bool
	placed    []stream.OrderRequest
	err       error
}

func (f *fakePlacer) Connected() bool { return f.connected }

func (f *fakePlacer) PlaceOrder(req stream.OrderRequest) error {
	if f.err != nil {
		return f.err
	}
	f.placed = append(f.placed, req)
	return nil
}

func newTestTracker() (*Tracker, *fakePlacer) {
	p := &fakePlacer{connected: true}
	return NewTracker(p, nil, Config{Currency: "USD", PipDigits: 2}), p
}

func TestSubmit_RejectsWhenDisconnected(t *testing.T) {
	tr, p := newTestTracker()
	p.connected = false

	_, err := tr.Submit("R_100", model.DigitMatch, 5, 1.0, 1)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, tr.Orders())
}

func TestSubmit_Validation(t *testing.T) {
	tr, _ := newTestTracker()

	_, err := tr.Submit("R_100", model.DigitMatch, 12, 1.0, 1)
	assert.ErrorIs(t, err, ErrNoDigit)

	_, err = tr.Submit("R_100", model.DigitMatch, -1, 1.0, 1)
	assert.ErrorIs(t, err, ErrNoDigit)

	_, err = tr.Submit("R_100", model.DigitMatch, 5, 0, 1)
	assert.ErrorIs(t, err, ErrBadStake)
}

func TestSubmit_PlacesAndRecordsPending(t *testing.T) {
	tr, p := newTestTracker()

	corr, err := tr.Submit("R_100", model.DigitOver, 3, 2.5, 5)
	require.NoError(t, err)
	require.NotEmpty(t, corr)

	require.Len(t, p.placed, 1)
	req := p.placed[0]
	assert.Equal(t, "DIGITOVER", req.ContractType)
	assert.Equal(t, "R_100", req.Symbol)
	assert.Equal(t, "3", req.Barrier)
	assert.Equal(t, 2.5, req.Amount)
	assert.Equal(t, "stake", req.Basis)
	assert.Equal(t, "t", req.DurationUnit)
	assert.Equal(t, corr, req.CorrelationID)

	orders := tr.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderPending, orders[0].State)
	assert.Equal(t, corr, orders[0].CorrelationID)
	assert.Equal(t, 1, tr.PendingCount())
}

func TestSubmit_NewestFirst(t *testing.T) {
	tr, _ := newTestTracker()

	first, err := tr.Submit("R_100", model.DigitMatch, 1, 1.0, 1)
	require.NoError(t, err)
	second, err := tr.Submit("R_100", model.DigitDiffer, 2, 1.0, 1)
	require.NoError(t, err)

	orders := tr.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, second, orders[0].CorrelationID)
	assert.Equal(t, first, orders[1].CorrelationID)
}

func TestHandleContract_SettlesWin(t *testing.T) {
	tr, _ := newTestTracker()

	corr, err := tr.Submit("R_100", model.DigitMatch, 7, 1.0, 1)
	require.NoError(t, err)

	var flashed []model.TradeOrder
	tr.OnFlash = func(ord model.TradeOrder) { flashed = append(flashed, ord) }

	tr.HandleBuyAck(9001, corr)
	tr.HandleContract(stream.ContractMsg{
		ContractID: 9001,
		IsSold:     1,
		ExitTick:   1234.57,
		Profit:     0.95,
	})

	orders := tr.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderWon, orders[0].State)
	require.NotNil(t, orders[0].SettlementDigit)
	assert.Equal(t, 7, *orders[0].SettlementDigit)
	require.NotNil(t, orders[0].Profit)
	assert.Equal(t, 0.95, *orders[0].Profit)
	assert.NotNil(t, orders[0].SettledAt)
	assert.Equal(t, 0, tr.PendingCount())

	require.Len(t, flashed, 1)
	assert.Equal(t, corr, flashed[0].CorrelationID)
}

func TestHandleContract_SettlesLoss(t *testing.T) {
	tr, _ := newTestTracker()

	corr, err := tr.Submit("R_100", model.DigitMatch, 7, 1.0, 1)
	require.NoError(t, err)

	tr.HandleBuyAck(9002, corr)
	tr.HandleContract(stream.ContractMsg{
		ContractID: 9002,
		IsSold:     1,
		ExitTick:   1234.53,
		Profit:     -1.0,
	})

	orders := tr.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderLost, orders[0].State)
	assert.Equal(t, 3, *orders[0].SettlementDigit)
}

func TestHandleContract_IgnoresUnsold(t *testing.T) {
	tr, _ := newTestTracker()

	corr, err := tr.Submit("R_100", model.DigitMatch, 7, 1.0, 1)
	require.NoError(t, err)
	tr.HandleBuyAck(9003, corr)

	tr.HandleContract(stream.ContractMsg{ContractID: 9003, IsSold: 0, Profit: 0.5})
	assert.Equal(t, model.OrderPending, tr.Orders()[0].State)

	// Contract must still be mapped and settleable afterwards.
	tr.HandleContract(stream.ContractMsg{ContractID: 9003, IsSold: 1, ExitTick: 10.01, Profit: 0.5})
	assert.Equal(t, model.OrderWon, tr.Orders()[0].State)
}

func TestHandleContract_UnknownContractIgnored(t *testing.T) {
	tr, _ := newTestTracker()

	_, err := tr.Submit("R_100", model.DigitMatch, 7, 1.0, 1)
	require.NoError(t, err)

	tr.HandleContract(stream.ContractMsg{ContractID: 4242, IsSold: 1, Profit: 1.0})
	assert.Equal(t, model.OrderPending, tr.Orders()[0].State)
}

func TestHandleContract_SettlesOnce(t *testing.T) {
	tr, _ := newTestTracker()

	corr, err := tr.Submit("R_100", model.DigitMatch, 7, 1.0, 1)
	require.NoError(t, err)
	tr.HandleBuyAck(9004, corr)

	flashes := 0
	tr.OnFlash = func(model.TradeOrder) { flashes++ }

	msg := stream.ContractMsg{ContractID: 9004, IsSold: 1, ExitTick: 10.07, Profit: 0.9}
	tr.HandleContract(msg)
	tr.HandleContract(msg) // duplicate update, mapping already released

	assert.Equal(t, 1, flashes)
	assert.Equal(t, model.OrderWon, tr.Orders()[0].State)
}

func TestHandleBuyAck_EvictsOldestWhenFull(t *testing.T) {
	tr, _ := newTestTracker()

	for i := 0; i < pendingCap+10; i++ {
		tr.HandleBuyAck(int64(i), "corr")
	}

	tr.mu.Lock()
	size := len(tr.pending)
	_, oldestKept := tr.pending[10]
	_, evicted := tr.pending[9]
	tr.mu.Unlock()

	assert.Equal(t, pendingCap, size)
	assert.True(t, oldestKept)
	assert.False(t, evicted)
}

func TestClear(t *testing.T) {
	tr, _ := newTestTracker()

	corr, err := tr.Submit("R_100", model.DigitMatch, 7, 1.0, 1)
	require.NoError(t, err)
	tr.HandleBuyAck(9005, corr)

	tr.Clear()
	assert.Empty(t, tr.Orders())

	// Settlement after clear is a no-op.
	tr.HandleContract(stream.ContractMsg{ContractID: 9005, IsSold: 1, Profit: 1.0})
	assert.Empty(t, tr.Orders())
}
