// Package relay coordinates session registration, shared topic state, and
// connection cleanup for the party relay via the Relay type.
package relay

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gridline/raceparty/internal/auth"
	"github.com/gridline/raceparty/internal/store"
)

// Relay manages every live WebSocket session and the process-wide state they
// share: the party topic registry and the presence index. It maintains
// session registration/unregistration and ensures thread-safe operations
// through mutex protection.
type Relay struct {
	verifier *auth.Verifier
	members  store.MembershipStore
	topics   *TopicRegistry
	presence *UserPartyIndex

	sessions   map[*Session]bool
	register   chan *Session
	unregister chan *Session
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewRelay creates a Relay wired to the given token verifier and membership
// store. The returned Relay is ready to manage sessions once Run is started.
func NewRelay(verifier *auth.Verifier, members store.MembershipStore) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		verifier:   verifier,
		members:    members,
		topics:     NewTopicRegistry(),
		presence:   NewUserPartyIndex(),
		sessions:   make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Topics exposes the party topic registry, primarily for introspection and
// tests.
func (rl *Relay) Topics() *TopicRegistry {
	return rl.topics
}

// Presence exposes the observational user-to-party index.
func (rl *Relay) Presence() *UserPartyIndex {
	return rl.presence
}

// Run starts the relay's main event loop, handling session registration and
// unregistration. This method should be called in a separate goroutine as it
// runs until Shutdown.
func (rl *Relay) Run() {
	defer close(rl.done)

	for {
		select {
		case <-rl.ctx.Done():
			rl.shutdownSessions()
			return

		case session := <-rl.register:
			if session == nil {
				log.Printf("Received nil session registration; skipping")
				continue
			}

			rl.mutex.Lock()
			rl.sessions[session] = true
			count := len(rl.sessions)
			rl.mutex.Unlock()
			log.Printf("Session registered for user %d from %s. Active sessions: %d",
				session.userID, session.addr, count)

			rl.wg.Add(2)
			go func() {
				defer rl.wg.Done()
				session.writePump()
			}()
			go func() {
				defer rl.wg.Done()
				session.readPump()
			}()

		case session := <-rl.unregister:
			rl.mutex.Lock()
			if _, ok := rl.sessions[session]; ok {
				delete(rl.sessions, session)
				count := len(rl.sessions)
				rl.mutex.Unlock()
				log.Printf("Session for user %d from %s unregistered. Active sessions: %d",
					session.userID, session.addr, count)
			} else {
				rl.mutex.Unlock()
			}
		}
	}
}

// shutdownSessions closes all active session connections. Each session's read
// pump observes the close and runs its own cleanup path.
func (rl *Relay) shutdownSessions() {
	log.Println("Shutting down all relay sessions...")

	rl.mutex.Lock()
	sessions := make([]*Session, 0, len(rl.sessions))
	for session := range rl.sessions {
		sessions = append(sessions, session)
	}
	rl.mutex.Unlock()

	for _, session := range sessions {
		if session.conn != nil {
			if err := session.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing session connection from %s: %v", session.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d session connections", len(sessions))
}

// Shutdown initiates graceful shutdown of the relay and waits for all session
// goroutines to complete. It returns after all connections are closed and
// goroutines have finished, or when the timeout is reached.
func (rl *Relay) Shutdown(timeout time.Duration) error {
	log.Println("Initiating relay shutdown...")

	rl.cancel()

	// Wait for Run() to complete
	<-rl.done

	done := make(chan struct{})
	go func() {
		rl.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Relay shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Relay shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
