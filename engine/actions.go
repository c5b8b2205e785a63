package engine

import (
	"fmt"
	"time"
)

// Directive is one emergency instruction for an external collaborator.
type Directive string

const (
	CloseAllPositions Directive = "CLOSE_ALL_POSITIONS"
	CancelAllOrders   Directive = "CANCEL_ALL_ORDERS"
	SendAlert         Directive = "SEND_ALERT"
)

// Trigger names the condition that produced an emergency bundle.
type Trigger string

const (
	TriggerDailyLoss         Trigger = "daily_loss_limit"
	TriggerWeeklyGovernor    Trigger = "weekly_governor"
	TriggerGatewayDisconnect Trigger = "gateway_disconnect"
)

// Bundle is one emergency episode's directive set, tagged with its trigger
// and timestamp. The engine emits at most one bundle per episode.
type Bundle struct {
	ID         string
	Trigger    Trigger
	Time       time.Time
	Directives []Directive
}

func (b Bundle) String() string {
	return fmt.Sprintf("emergency %s trigger=%s directives=%v", b.ID, b.Trigger, b.Directives)
}

// directivesFor maps a trigger to its directive set. A gateway disconnect
// cancels working orders and alerts but does not liquidate: positions may
// be fine, the engine just cannot see them.
func directivesFor(t Trigger) []Directive {
	switch t {
	case TriggerGatewayDisconnect:
		return []Directive{CancelAllOrders, SendAlert}
	default:
		return []Directive{CloseAllPositions, CancelAllOrders, SendAlert}
	}
}

// Broker executes emergency directives against the real order gateway.
type Broker interface {
	CloseAllPositions(trigger string) error
	CancelAllOrders(trigger string) error
}

// Notifier delivers emergency bundles to a human.
type Notifier interface {
	Alert(Bundle) error
}

// NopBroker ignores directives; the default for library embedders that
// consume bundles themselves.
type NopBroker struct{}

func (NopBroker) CloseAllPositions(string) error { return nil }
func (NopBroker) CancelAllOrders(string) error   { return nil }

// NopNotifier drops alerts.
type NopNotifier struct{}

func (NopNotifier) Alert(Bundle) error { return nil }
