package stream

import "encoding/json"

// Inbound event names pushed by the agent.
const (
	EventAgentStatus         = "agent:status"
	EventAgentStatusChanged  = "agent:status_changed"
	EventPortfolioUpdated    = "portfolio:updated"
	EventOpportunitiesInit   = "opportunities:initial"
	EventTradesInit          = "trades:initial"
	EventAIInsights          = "ai:insights"
	EventOpportunityDetected = "opportunity:detected"
	EventTradeExecuting      = "trade:executing"
	EventTradeCompleted      = "trade:completed"
	EventTradeSkipped        = "trade:skipped"
	EventAIDecision          = "ai:decision"
)

// Outbound command names. Commands are fire-and-forget: there is no
// acknowledgement contract, so success is only knowable through the
// resulting status event.
const (
	CommandAgentStart         = "agent:start"
	CommandAgentStop          = "agent:stop"
	CommandWalletConnected    = "wallet:connected"
	CommandWalletDisconnected = "wallet:disconnected"
)

// envelope is the wire frame for both directions: a named event plus an
// optional JSON payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// walletPayload is the payload of wallet:connected.
type walletPayload struct {
	Address string `json:"address"`
}
