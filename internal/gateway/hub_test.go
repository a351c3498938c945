package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_CachesLatestAndFansOut(t *testing.T) {
	h := NewHub()
	c := &Client{send: make(chan []byte, 8), hub: h}
	h.clients[c] = true

	h.Broadcast("signal", map[string]string{"bias": "BUY"})

	env, ok := h.Latest("signal")
	require.True(t, ok)

	var decoded struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env, &decoded))
	assert.Equal(t, "signal", decoded.Channel)
	assert.JSONEq(t, `{"bias":"BUY"}`, string(decoded.Data))

	select {
	case got := <-c.send:
		assert.Equal(t, []byte(env), got)
	default:
		t.Fatal("client did not receive broadcast")
	}
}

func TestBroadcast_DropsForFullClient(t *testing.T) {
	h := NewHub()
	c := &Client{send: make(chan []byte, 1), hub: h}
	h.clients[c] = true

	h.Broadcast("tick", 1)
	h.Broadcast("tick", 2) // queue full, dropped for this client

	assert.Len(t, c.send, 1)
	env, ok := h.Latest("tick")
	require.True(t, ok)
	assert.Contains(t, string(env), `"data":2`)
}

func TestSendInitialState_ReplaysLatest(t *testing.T) {
	h := NewHub()
	h.Broadcast("signal", map[string]string{"bias": "WAIT"})
	h.Broadcast("orders", []int{})

	c := &Client{send: make(chan []byte, 8), hub: h}
	h.clients[c] = true
	c.sendInitialState()

	assert.Len(t, c.send, 2)
}

func TestCommandValidate(t *testing.T) {
	cases := []struct {
		cmd     Command
		wantErr bool
	}{
		{Command{Type: CmdMode, Mode: "line"}, false},
		{Command{Type: CmdMode, Mode: "bars"}, true},
		{Command{Type: CmdZoom, Factor: 0.9, Ratio: 0.5}, false},
		{Command{Type: CmdZoom, Factor: 0}, true},
		{Command{Type: CmdPan, DX: 10, Width: 800}, false},
		{Command{Type: CmdPan, DX: 10, Width: 0}, true},
		{Command{Type: CmdInstrument, Instrument: "R_50"}, false},
		{Command{Type: CmdInstrument}, true},
		{Command{Type: CmdTimeframe, TimeframeSec: 60}, false},
		{Command{Type: CmdTimeframe}, true},
		{Command{Type: CmdOrder, ContractType: "DIGITMATCH"}, false},
		{Command{Type: CmdOrder}, true},
		{Command{Type: CmdGoLive}, false},
		{Command{Type: "bogus"}, true},
	}
	for _, tc := range cases {
		err := tc.cmd.Validate()
		if tc.wantErr {
			assert.Error(t, err, "cmd %+v", tc.cmd)
		} else {
			assert.NoError(t, err, "cmd %+v", tc.cmd)
		}
	}
}
