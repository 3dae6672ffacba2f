package types

import (
	"fmt"
	"sync"

	"github.com/fortis-labs/fortis/logx"
)

// AllEvents subscribes to every published event regardless of tx hash
const AllEvents = "*"

const subscriberBuffer = 64

// EventBus handles subscription and publishing of ledger events
type EventBus struct {
	subscribers map[string][]chan LedgerEvent
	mu          sync.RWMutex
}

// NewEventBus creates a new EventBus instance
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan LedgerEvent),
	}
}

// Subscribe subscribes to events for a specific transaction hash, or every
// event when txHash is AllEvents
func (eb *EventBus) Subscribe(txHash string) chan LedgerEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan LedgerEvent, subscriberBuffer)
	eb.subscribers[txHash] = append(eb.subscribers[txHash], ch)

	logx.Debug("EVENTBUS", fmt.Sprintf("Subscribed to events for %s (total subscribers: %d)", txHash, len(eb.subscribers[txHash])))
	return ch
}

// Unsubscribe removes a subscription and closes its channel
func (eb *EventBus) Unsubscribe(txHash string, ch chan LedgerEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs, exists := eb.subscribers[txHash]
	if !exists {
		return
	}
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[txHash] = append(subs[:i], subs[i+1:]...)
			close(ch)

			if len(eb.subscribers[txHash]) == 0 {
				delete(eb.subscribers, txHash)
			}
			break
		}
	}
}

// Publish delivers an event to subscribers of its tx hash and to AllEvents
// subscribers. Full channels are skipped, publishing never blocks.
func (eb *EventBus) Publish(event LedgerEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	txHash := event.TxHash()
	eb.deliver(eb.subscribers[txHash], event)
	if txHash != AllEvents {
		eb.deliver(eb.subscribers[AllEvents], event)
	}
}

func (eb *EventBus) deliver(subs []chan LedgerEvent, event LedgerEvent) {
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			logx.Warn("EVENTBUS", fmt.Sprintf("Subscriber channel full, dropping %s event for %s", event.Type(), event.TxHash()))
		}
	}
}

// GetSubscriberCount returns the number of subscribers for a transaction
func (eb *EventBus) GetSubscriberCount(txHash string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[txHash])
}

// GetTotalSubscriptions returns the total number of active subscriptions
func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	total := 0
	for _, subs := range eb.subscribers {
		total += len(subs)
	}
	return total
}
