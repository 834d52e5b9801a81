// Package relay manages the per-party broadcast topics that fan position
// updates out to every subscribed session.
package relay

import (
	"log"
	"sync"
)

// topicBufferSize bounds each subscription's delivery channel. A forwarder
// that falls this far behind starts losing broadcasts rather than blocking
// the publisher.
const topicBufferSize = 100

// Subscription is one session's attachment to a party topic. Broadcasts are
// delivered on C until the subscription is released, after which C is closed.
type Subscription struct {
	id      string
	partyID int
	C       chan []byte
}

// partyTopic fans published payloads out to its current subscribers. Its own
// mutex covers both subscriber mutation and delivery, so a subscription is
// never closed while a publish is writing to it.
type partyTopic struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func newPartyTopic() *partyTopic {
	return &partyTopic{subs: make(map[string]*Subscription)}
}

func (t *partyTopic) add(sub *Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[sub.id] = sub
}

// remove detaches and closes the subscription, returning how many subscribers
// remain. Removing an unknown id is a no-op.
func (t *partyTopic) remove(subscriberID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sub, ok := t.subs[subscriberID]; ok {
		delete(t.subs, subscriberID)
		close(sub.C)
	}
	return len(t.subs)
}

// broadcast delivers the payload to every subscriber except the excluded one.
// Delivery is non-blocking: a subscription whose buffer is full misses the
// payload instead of stalling the publisher.
func (t *partyTopic) broadcast(payload []byte, exclude string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, sub := range t.subs {
		if id == exclude {
			continue
		}
		select {
		case sub.C <- payload:
		default:
			log.Printf("Dropping broadcast for slow subscriber %s", id)
		}
	}
}

func (t *partyTopic) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// TopicRegistry maps party ids to their live broadcast topics. A topic is
// created by the first subscriber's Acquire and removed when the last
// subscriber releases it; the registry never holds an empty topic.
type TopicRegistry struct {
	mu     sync.Mutex
	topics map[int]*partyTopic
}

// NewTopicRegistry creates an empty registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{topics: make(map[int]*partyTopic)}
}

// Acquire subscribes subscriberID to the topic for partyID, creating the
// topic if it does not exist yet. Safe for arbitrary concurrent callers; two
// concurrent Acquires for an absent party produce a single topic.
func (r *TopicRegistry) Acquire(partyID int, subscriberID string) *Subscription {
	sub := &Subscription{
		id:      subscriberID,
		partyID: partyID,
		C:       make(chan []byte, topicBufferSize),
	}

	// Holding the registry lock across the add keeps a concurrent Release of
	// the last other subscriber from deleting the topic underneath us.
	r.mu.Lock()
	defer r.mu.Unlock()
	topic, ok := r.topics[partyID]
	if !ok {
		topic = newPartyTopic()
		r.topics[partyID] = topic
	}
	topic.add(sub)
	return sub
}

// Release drops subscriberID from the topic for partyID and closes its
// delivery channel. When the last subscriber leaves, the topic is removed
// from the registry; payloads already delivered to other subscriptions are
// unaffected. Releasing an unknown party or subscriber is a no-op.
func (r *TopicRegistry) Release(partyID int, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	topic, ok := r.topics[partyID]
	if !ok {
		return
	}
	if topic.remove(subscriberID) == 0 {
		delete(r.topics, partyID)
	}
}

// Publish broadcasts the payload to every current subscriber of the party's
// topic except the one identified by exclude (publishers do not receive their
// own broadcasts). Publishing to a party with no topic is a no-op; it can
// only happen through a router bug and must not crash.
func (r *TopicRegistry) Publish(partyID int, payload []byte, exclude string) {
	if payload == nil {
		return
	}

	r.mu.Lock()
	topic, ok := r.topics[partyID]
	r.mu.Unlock()
	if !ok {
		return
	}

	// Fan-out runs under the topic's own lock, never the registry's.
	topic.broadcast(payload, exclude)
}

// Subscribers reports the current subscriber count for a party, zero if the
// topic does not exist.
func (r *TopicRegistry) Subscribers(partyID int) int {
	r.mu.Lock()
	topic, ok := r.topics[partyID]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return topic.size()
}

// TopicCount reports how many party topics are currently live.
func (r *TopicRegistry) TopicCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}
