package stream

import (
	"encoding/json"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// Outbound action names.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
)

// Inbound message types.
const (
	TypeStrategyUpdate          = "strategy_update"
	TypeSubscriptionConfirmed   = "subscription_confirmed"
	TypeUnsubscriptionConfirmed = "unsubscription_confirmed"
	TypeError                   = "error"
	TypeUpdateError             = "update_error"
	TypePong                    = "pong"
)

// OutboundAction is one message sent to the pricing server. StrategyParams is
// set only for subscribe, StrategyID only for unsubscribe; ping carries
// neither. Immutable once created.
type OutboundAction struct {
	Action         string                 `json:"action"`
	StrategyParams *domain.StrategyParams `json:"strategy_params,omitempty"`
	StrategyID     string                 `json:"strategy_id,omitempty"`
}

// SubscribeAction builds the subscribe action for the given parameters.
func SubscribeAction(params domain.StrategyParams) OutboundAction {
	return OutboundAction{Action: ActionSubscribe, StrategyParams: &params}
}

// UnsubscribeAction builds the unsubscribe action for a subscription id.
func UnsubscribeAction(id string) OutboundAction {
	return OutboundAction{Action: ActionUnsubscribe, StrategyID: id}
}

// PingAction builds the heartbeat action.
func PingAction() OutboundAction {
	return OutboundAction{Action: ActionPing}
}

// InboundMessage is the envelope for every frame the server pushes. Data is
// decoded lazily because only strategy_update frames carry a payload.
type InboundMessage struct {
	Type       string          `json:"type"`
	StrategyID string          `json:"strategy_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ErrorText returns the human-readable error carried by an error-kind frame.
// Servers are inconsistent about which field they use, so both are accepted.
func (m *InboundMessage) ErrorText() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Error
}
