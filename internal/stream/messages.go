package stream

import "encoding/json"

// Outbound requests. Field names follow the broker's JSON API.

type authorizeReq struct {
	Authorize string `json:"authorize"`
}

type ticksReq struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
}

type forgetAllReq struct {
	ForgetAll string `json:"forget_all"`
}

type balanceReq struct {
	Balance   int `json:"balance"`
	Subscribe int `json:"subscribe"`
}

// OrderRequest describes one digit-contract purchase.
type OrderRequest struct {
	Amount        float64 `json:"amount"`
	Basis         string  `json:"basis"` // "stake"
	ContractType  string  `json:"contract_type"`
	Currency      string  `json:"currency"`
	Symbol        string  `json:"symbol"`
	Duration      int     `json:"duration"`
	DurationUnit  string  `json:"duration_unit"` // "t" = ticks
	Barrier       string  `json:"barrier,omitempty"`
	CorrelationID string  `json:"-"`
}

type buyReq struct {
	Buy         string       `json:"buy"` // "1" = buy at proposal price
	Price       float64      `json:"price"`
	Parameters  OrderRequest `json:"parameters"`
	Passthrough passthrough  `json:"passthrough"`
}

type passthrough struct {
	CorrelationID string `json:"correlation_id"`
}

// Inbound payloads.

// APIError is an error payload carried inside an otherwise valid message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthorizeMsg confirms a successful session authorization.
type AuthorizeMsg struct {
	LoginID  string  `json:"loginid"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
}

// TickMsg is one streamed price sample.
type TickMsg struct {
	Symbol string  `json:"symbol"`
	Quote  float64 `json:"quote"`
	Epoch  int64   `json:"epoch"`
}

// BalanceMsg is a streamed account balance update.
type BalanceMsg struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// BuyMsg acknowledges a purchase with the broker-assigned contract id.
type BuyMsg struct {
	ContractID int64   `json:"contract_id"`
	BuyPrice   float64 `json:"buy_price"`
	Payout     float64 `json:"payout"`
}

// ContractMsg is a streamed contract status update. IsSold is 1 once the
// contract has settled.
type ContractMsg struct {
	ContractID int64   `json:"contract_id"`
	IsSold     int     `json:"is_sold"`
	ExitTick   float64 `json:"exit_tick"`
	Profit     float64 `json:"profit"`
	Payout     float64 `json:"payout"`
}

// envelope is the generic inbound message frame.
type envelope struct {
	MsgType              string        `json:"msg_type"`
	Error                *APIError     `json:"error,omitempty"`
	Authorize            *AuthorizeMsg `json:"authorize,omitempty"`
	Tick                 *TickMsg      `json:"tick,omitempty"`
	Balance              *BalanceMsg   `json:"balance,omitempty"`
	Buy                  *BuyMsg       `json:"buy,omitempty"`
	ProposalOpenContract *ContractMsg  `json:"proposal_open_contract,omitempty"`
	Passthrough          *passthrough  `json:"passthrough,omitempty"`
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
