package stream

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"arb-console/internal/domain"
	"arb-console/internal/notify"
	"arb-console/internal/observability"
	"arb-console/internal/state"
)

// highConfidence is the threshold above which an approving AI decision is
// surfaced as a notification.
const highConfidence = 0.9

// Subscriber is the part of the client the binder needs.
type Subscriber interface {
	Subscribe(event string, h Handler) *Subscription
	OnConnectionChange(fn func(connected bool)) func()
}

var _ Subscriber = (*Client)(nil)

// Binder routes inbound agent events into the trading store and turns the
// presentation-worthy ones into notifications. Malformed payloads are
// counted and dropped; the store never sees them.
type Binder struct {
	store    *state.TradingStore
	notifier notify.Notifier
	logger   *zap.SugaredLogger
}

// NewBinder creates a binder over the given store and notifier.
func NewBinder(store *state.TradingStore, notifier notify.Notifier, logger *zap.SugaredLogger) *Binder {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Binder{store: store, notifier: notifier, logger: logger}
}

// Bind subscribes every inbound event plus the connection-state feed.
// A disconnect keeps the last-known store state on display, so the only
// disconnect effect here is the notification and the gauge.
func (b *Binder) Bind(sub Subscriber) {
	sub.Subscribe(EventAgentStatus, b.handleAgentStatus)
	sub.Subscribe(EventAgentStatusChanged, b.handleAgentStatusChanged)
	sub.Subscribe(EventPortfolioUpdated, b.handlePortfolioUpdated)
	sub.Subscribe(EventOpportunitiesInit, b.handleOpportunitiesInit)
	sub.Subscribe(EventTradesInit, b.handleTradesInit)
	sub.Subscribe(EventAIInsights, b.handleAIInsights)
	sub.Subscribe(EventOpportunityDetected, b.handleOpportunityDetected)
	sub.Subscribe(EventTradeExecuting, b.handleTradeExecuting)
	sub.Subscribe(EventTradeCompleted, b.handleTradeCompleted)
	sub.Subscribe(EventTradeSkipped, b.handleTradeSkipped)
	sub.Subscribe(EventAIDecision, b.handleAIDecision)

	sub.OnConnectionChange(func(connected bool) {
		observability.SetConnected(connected)
		if connected {
			b.notifier.Notify(notify.SeveritySuccess, "Agent connected", "")
		} else {
			b.notifier.Notify(notify.SeverityWarning, "Agent disconnected",
				"showing last known data")
		}
	})
}

// decode unmarshals one payload, recording the outcome.
func (b *Binder) decode(event string, data json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		observability.RecordDecodeError(event)
		b.logger.Warnw("undecodable event payload dropped", "event", event, "error", err)
		return false
	}
	observability.RecordEvent(event)
	return true
}

func (b *Binder) handleAgentStatus(data json.RawMessage) {
	var status domain.AgentStatus
	if !b.decode(EventAgentStatus, data, &status) {
		return
	}
	b.store.SetAgentStatus(status)
}

func (b *Binder) handleAgentStatusChanged(data json.RawMessage) {
	var status domain.AgentStatus
	if !b.decode(EventAgentStatusChanged, data, &status) {
		return
	}
	b.store.SetAgentStatus(status)

	switch status.State {
	case domain.AgentStateActive:
		b.notifier.Notify(notify.SeverityInfo, "Agent running", "")
	case domain.AgentStatePaused, domain.AgentStateStopped:
		b.notifier.Notify(notify.SeverityInfo, "Agent stopped", "")
	case domain.AgentStateError:
		msg := ""
		if len(status.Errors) > 0 {
			msg = status.Errors[len(status.Errors)-1]
		}
		b.notifier.Notify(notify.SeverityError, "Agent error", msg)
	}
}

func (b *Binder) handlePortfolioUpdated(data json.RawMessage) {
	var p domain.Portfolio
	if !b.decode(EventPortfolioUpdated, data, &p) {
		return
	}
	b.store.SetPortfolio(p)
}

func (b *Binder) handleOpportunitiesInit(data json.RawMessage) {
	var opps []domain.Opportunity
	if !b.decode(EventOpportunitiesInit, data, &opps) {
		return
	}
	b.store.SetOpportunities(opps)
}

func (b *Binder) handleTradesInit(data json.RawMessage) {
	var trades []domain.Trade
	if !b.decode(EventTradesInit, data, &trades) {
		return
	}
	b.store.SetTrades(trades)
}

func (b *Binder) handleAIInsights(data json.RawMessage) {
	var ins domain.AIInsights
	if !b.decode(EventAIInsights, data, &ins) {
		return
	}
	b.store.SetAIInsights(ins)
}

func (b *Binder) handleOpportunityDetected(data json.RawMessage) {
	var opp domain.Opportunity
	if !b.decode(EventOpportunityDetected, data, &opp) {
		return
	}
	if opp.Status == "" {
		opp.Status = domain.OpportunityDetected
	}
	b.store.AddOpportunity(opp)
}

func (b *Binder) handleTradeExecuting(data json.RawMessage) {
	var t domain.Trade
	if !b.decode(EventTradeExecuting, data, &t) {
		return
	}
	if t.Status == "" {
		t.Status = domain.TradeStatusPending
	}
	b.store.AddTrade(t)
	b.notifier.Notify(notify.SeverityInfo, "Executing trade", t.Pair)
}

func (b *Binder) handleTradeCompleted(data json.RawMessage) {
	var t domain.Trade
	if !b.decode(EventTradeCompleted, data, &t) {
		return
	}
	if !b.store.CompleteTrade(t) {
		// Dropped completions (already terminal, bad status) must not
		// notify or count again.
		return
	}
	observability.RecordCompletion(string(t.Status))

	if t.Status == domain.TradeStatusSuccess && t.Profit >= 0 {
		b.notifier.Notify(notify.SeveritySuccess, "Trade completed",
			fmt.Sprintf("%s +$%.2f", t.Pair, t.Profit))
		return
	}
	b.notifier.Notify(notify.SeverityError, "Trade lost money",
		fmt.Sprintf("%s $%.2f", t.Pair, t.Profit))
}

func (b *Binder) handleTradeSkipped(data json.RawMessage) {
	var rec domain.SkippedTrade
	if !b.decode(EventTradeSkipped, data, &rec) {
		return
	}
	b.store.AddSkippedTrade(rec)
}

// handleAIDecision is notification-only: a decision never mutates the store,
// the follow-up trade or skip event does.
func (b *Binder) handleAIDecision(data json.RawMessage) {
	var d domain.AIDecision
	if !b.decode(EventAIDecision, data, &d) {
		return
	}
	if !d.ShouldExecute {
		b.notifier.Notify(notify.SeverityWarning, "AI rejected opportunity", d.Reasoning)
		return
	}
	if d.Confidence >= highConfidence {
		b.notifier.Notify(notify.SeverityInfo, "High-confidence decision",
			fmt.Sprintf("confidence %.0f%%", d.Confidence*100))
	}
}
