// Package notification delivers console events (connection loss, trade
// settlements, actionable signals) to external channels.
package notification

import (
	"context"
	"fmt"
	"log"

	"synthdesk/internal/model"
	"synthdesk/internal/signal"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them (useful for development
// and as the fallback when no webhook is configured).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// TradeFlash builds the settlement alert shown when a digit contract closes.
func TradeFlash(ord model.TradeOrder) Alert {
	level := AlertInfo
	verb := "won"
	if ord.State == model.OrderLost {
		level = AlertWarning
		verb = "lost"
	}
	profit := 0.0
	if ord.Profit != nil {
		profit = *ord.Profit
	}
	digit := -1
	if ord.SettlementDigit != nil {
		digit = *ord.SettlementDigit
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("Trade %s", verb),
		Message: fmt.Sprintf("%s %s digit=%d settled=%d stake=%.2f profit=%+.2f",
			ord.Instrument, ord.ContractType, ord.Digit, digit, ord.Stake, profit),
	}
}

// ConnectionLost builds the alert for an unexpected stream drop.
func ConnectionLost(code, message string) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "Stream disconnected",
		Message: fmt.Sprintf("%s: %s (reconnect manually)", code, message),
	}
}

// SniperEntry builds the alert for a precision entry trigger.
func SniperEntry(sig signal.Signal) Alert {
	return Alert{
		Level: AlertInfo,
		Title: "Sniper entry",
		Message: fmt.Sprintf("%s tf=%ds %s/%s tp=%.5f sl=%.5f",
			sig.Instrument, sig.Timeframe, sig.Structure, sig.Bias, sig.TakeProfit, sig.StopLoss),
	}
}
