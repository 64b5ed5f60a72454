package server

// Live event fan-out. The Hub receives notifications from the dashboard
// service, the change recorder and the scheduler dispatcher, and pushes them
// to every connected websocket client whose identity may see the domain.

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/access"
	"github.com/sharanvkt/insane-dashboard-v2/dashboard"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
)

// Event types pushed to clients besides the dashboard.Event* names.
const (
	EventHistoryRecorded = "history_recorded"
	EventScheduleApplied = "schedule_applied"
	EventScheduleFailed  = "schedule_failed"
)

const (
	// hubQueueSize bounds events waiting for the hub loop
	hubQueueSize = 256

	// clientQueueSize bounds events waiting for one client's write pump
	clientQueueSize = 64

	// lookupTimeout bounds the domain name lookup used for filtering
	lookupTimeout = 2 * time.Second
)

// Event is one live notification.
type Event struct {
	Type      string                    `json:"type"`
	DomainID  string                    `json:"domainId,omitempty"`
	Domain    *domain.Domain            `json:"domain,omitempty"`
	Schedule  *schedule.ScheduledUpdate `json:"schedule,omitempty"`
	Entry     *history.Entry            `json:"entry,omitempty"`
	Changes   history.Changes           `json:"changes,omitempty"`
	Reason    string                    `json:"reason,omitempty"`
	Timestamp int64                     `json:"timestamp"`

	// domainName decides which clients receive the event. Empty means the
	// domain is gone and only scope "all" identities are told.
	domainName string
}

// Hub tracks websocket clients and fans events out to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan Event
	done       chan struct{}
	mu         sync.RWMutex

	access access.Checker
	lookup history.DomainLookup
	logger *zap.SugaredLogger
	clock  func() time.Time
	drops  atomic.Int64
}

var (
	_ dashboard.Events     = (*Hub)(nil)
	_ schedule.Broadcaster = (*Hub)(nil)
)

// NewHub creates a hub that filters events with checker. lookup resolves
// domain names for events that only carry an id.
func NewHub(checker access.Checker, lookup history.DomainLookup, log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = logger.ComponentLogger("events")
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, hubQueueSize),
		done:       make(chan struct{}),
		access:     checker,
		lookup:     lookup,
		logger:     log,
		clock:      time.Now,
	}
}

// Run processes registrations and events until ctx is cancelled, then
// closes every client. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.close()
			}
			h.mu.Unlock()
			eventClients.Set(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			eventClients.Set(float64(count))
			h.logger.Debugw("Event client registered",
				"client_id", c.id,
				logger.FieldActor, c.identity,
				logger.FieldCount, count,
			)

		case c := <-h.unregister:
			h.removeClient(c)

		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Drops returns how many events were discarded since start.
func (h *Hub) Drops() int64 {
	return h.drops.Load()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	c.close()
	eventClients.Set(float64(count))
	h.logger.Debugw("Event client unregistered", "client_id", c.id, logger.FieldCount, count)
}

// deliver sends ev to every client allowed to see it. A client whose queue
// is full is disconnected rather than allowed to stall the others.
func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if h.access.CanAccess(c.identity, ev.domainName) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- ev:
		default:
			h.drops.Add(1)
			eventDrops.Inc()
			h.logger.Warnw("Event client too slow, disconnecting", "client_id", c.id)
			h.removeClient(c)
		}
	}
}

// publish queues ev without blocking the notifying caller.
func (h *Hub) publish(ev Event) {
	ev.Timestamp = h.clock().Unix()
	select {
	case h.events <- ev:
	default:
		h.drops.Add(1)
		eventDrops.Inc()
		h.logger.Warnw("Event queue full, dropping event", "type", ev.Type, logger.FieldDomainID, ev.DomainID)
	}
}

// nameOf resolves a domain name for filtering; a missing domain yields "".
func (h *Hub) nameOf(domainID string) string {
	if h.lookup == nil || domainID == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	name, err := h.lookup.NameOf(ctx, domainID)
	if err != nil {
		return ""
	}
	return name
}

// HistoryRecorded implements history.Listener.
func (h *Hub) HistoryRecorded(e history.Entry) {
	h.publish(Event{
		Type:       EventHistoryRecorded,
		DomainID:   e.DomainID,
		Entry:      &e,
		domainName: h.nameOf(e.DomainID),
	})
}

// DomainChanged implements dashboard.Events.
func (h *Hub) DomainChanged(event string, d *domain.Domain) {
	h.publish(Event{
		Type:       event,
		DomainID:   d.ID,
		Domain:     d,
		domainName: d.Name,
	})
}

// ScheduleChanged implements dashboard.Events.
func (h *Hub) ScheduleChanged(event string, u *schedule.ScheduledUpdate) {
	h.publish(Event{
		Type:       event,
		DomainID:   u.DomainID,
		Schedule:   u,
		domainName: h.nameOf(u.DomainID),
	})
}

// ScheduleApplied implements schedule.Broadcaster.
func (h *Hub) ScheduleApplied(u *schedule.ScheduledUpdate, changes history.Changes) {
	h.publish(Event{
		Type:       EventScheduleApplied,
		DomainID:   u.DomainID,
		Schedule:   u,
		Changes:    changes,
		domainName: h.nameOf(u.DomainID),
	})
}

// ScheduleFailed implements schedule.Broadcaster.
func (h *Hub) ScheduleFailed(u *schedule.ScheduledUpdate, reason string) {
	h.publish(Event{
		Type:       EventScheduleFailed,
		DomainID:   u.DomainID,
		Schedule:   u,
		Reason:     reason,
		domainName: h.nameOf(u.DomainID),
	})
}
