// Package registry is the authoritative local set of monitored events and
// their per-event connection status. The entity list is written to a
// durable store after every mutation and read back once at start-up.
//
// A Registry is not safe for concurrent use; the session loop owns it.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/tm-monitor/internal/clock"
	"github.com/iliyamo/tm-monitor/internal/model"
	"github.com/iliyamo/tm-monitor/internal/repository"
)

// DefaultKey is the fixed storage identifier of the entity list.
const DefaultKey = "monitoredEvents"

var (
	ErrInvalidURL   = errors.New("invalid event url")
	ErrDuplicateURL = errors.New("event already monitored")
	ErrDuplicateID  = errors.New("event id already monitored")
	ErrNotFound     = errors.New("event not found")
)

// Store is the durable backing for the entity list.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Registry holds the ordered entity list and the connection status map.
type Registry struct {
	store   Store
	key     string
	clock   clock.Clock
	logger  *slog.Logger
	timeout time.Duration

	entities []model.MonitoredEntity
	statuses map[string]model.ConnectionStatus
	pushSeq  uint64
	pushedAt map[string]uint64
}

// New returns an empty registry persisting under key. Call Load to read
// the stored list.
func New(store Store, key string, clk clock.Clock, logger *slog.Logger) *Registry {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:    store,
		key:      key,
		clock:    clk,
		logger:   logger.With("component", "registry"),
		timeout:  5 * time.Second,
		statuses: make(map[string]model.ConnectionStatus),
		pushedAt: make(map[string]uint64),
	}
}

// Load replaces the in-memory list with the stored one. A missing,
// unreadable or corrupt record yields an empty list; the failure is
// logged and never returned. Entities without a status start out as
// connecting.
func (r *Registry) Load(ctx context.Context) {
	r.entities = nil
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.store.Get(ctx, r.key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r.logger.Info("no stored events")
	case err != nil:
		r.logger.Error("read stored events", "error", err)
	default:
		var stored []model.MonitoredEntity
		if err := json.Unmarshal(raw, &stored); err != nil {
			r.logger.Error("stored events are corrupt; starting empty", "error", err)
			break
		}
		seenID := make(map[string]bool, len(stored))
		seenURL := make(map[string]bool, len(stored))
		for _, e := range stored {
			if e.ID == "" || seenID[e.ID] || seenURL[e.URL] {
				r.logger.Warn("dropping duplicate stored event", "event_id", e.ID, "url", e.URL)
				continue
			}
			seenID[e.ID] = true
			seenURL[e.URL] = true
			r.entities = append(r.entities, e)
		}
	}

	for _, e := range r.entities {
		if _, ok := r.statuses[e.ID]; !ok {
			r.statuses[e.ID] = model.InitialConnectionStatus(e.ID, "Loading connection status...", r.clock.Now())
		}
	}
	r.logger.Info("loaded events", "count", len(r.entities))
}

// Prepare validates a URL for adding. It rejects malformed URLs and URLs
// whose URL or derived id is already monitored, and never touches the
// list.
func (r *Registry) Prepare(rawURL string) (Candidate, error) {
	c, err := ParseURL(rawURL)
	if err != nil {
		return Candidate{}, err
	}
	for _, e := range r.entities {
		if e.URL == c.URL {
			return Candidate{}, ErrDuplicateURL
		}
		if e.ID == c.ID {
			return Candidate{}, ErrDuplicateID
		}
	}
	return c, nil
}

// Confirm inserts an entity once the backend has accepted it. The
// connection status starts out as connecting.
func (r *Registry) Confirm(url, id, name string) (model.MonitoredEntity, error) {
	for _, e := range r.entities {
		if e.URL == url {
			return model.MonitoredEntity{}, ErrDuplicateURL
		}
		if e.ID == id {
			return model.MonitoredEntity{}, ErrDuplicateID
		}
	}
	now := r.clock.Now().UTC()
	e := model.MonitoredEntity{
		ID:      id,
		URL:     url,
		Name:    name,
		Status:  model.StatusMonitoring,
		AddedAt: now,
	}
	r.entities = append(r.entities, e)
	r.statuses[id] = model.InitialConnectionStatus(id, "Initializing connection...", now)
	r.persist()
	return e, nil
}

// Remove deletes an entity and its status. The local list is the source
// of truth for what is displayed, so this never waits on the backend.
func (r *Registry) Remove(id string) (model.MonitoredEntity, bool) {
	for i, e := range r.entities {
		if e.ID != id {
			continue
		}
		r.entities = append(r.entities[:i:i], r.entities[i+1:]...)
		delete(r.statuses, id)
		delete(r.pushedAt, id)
		r.persist()
		return e, true
	}
	return model.MonitoredEntity{}, false
}

// UpdateStatus overwrites an entity's lifecycle status and last-update
// time. data replaces the stored payload when non-empty. Unknown ids are
// ignored.
func (r *Registry) UpdateStatus(id string, status model.EntityStatus, data json.RawMessage) bool {
	for i := range r.entities {
		if r.entities[i].ID != id {
			continue
		}
		now := r.clock.Now().UTC()
		r.entities[i].Status = status
		r.entities[i].LastUpdate = &now
		if len(data) > 0 {
			r.entities[i].Data = append(json.RawMessage(nil), data...)
		}
		r.persist()
		return true
	}
	return false
}

// SetConnectionStatus records a pushed connection status.
func (r *Registry) SetConnectionStatus(cs model.ConnectionStatus) {
	r.pushSeq++
	r.pushedAt[cs.EntityID] = r.pushSeq
	r.statuses[cs.EntityID] = cs
}

// StatusMark returns the current push position. Take it before starting
// a bulk fetch and hand it to ReplaceConnectionStatuses.
func (r *Registry) StatusMark() uint64 { return r.pushSeq }

// ReplaceConnectionStatuses installs a bulk refresh fetched after mark.
// Entities pushed to since mark keep their pushed status; the rest take
// the refreshed one, or fall back to connecting when it is missing.
func (r *Registry) ReplaceConnectionStatuses(statuses map[string]model.ConnectionStatus, mark uint64) {
	next := make(map[string]model.ConnectionStatus, len(statuses)+len(r.entities))
	for id, cs := range statuses {
		cs.EntityID = id
		next[id] = cs
	}
	for id, seq := range r.pushedAt {
		if seq > mark {
			next[id] = r.statuses[id]
		}
	}
	for _, e := range r.entities {
		if _, ok := next[e.ID]; !ok {
			next[e.ID] = model.InitialConnectionStatus(e.ID, "Initializing...", r.clock.Now())
		}
	}
	r.statuses = next
}

// ConnectionStatus returns the status for id, defaulting to connecting.
func (r *Registry) ConnectionStatus(id string) model.ConnectionStatus {
	if cs, ok := r.statuses[id]; ok {
		return cs
	}
	return model.ConnectionStatus{EntityID: id, Status: model.ConnConnecting, Message: "Initializing..."}
}

// Get returns the entity with the given id.
func (r *Registry) Get(id string) (model.MonitoredEntity, bool) {
	for _, e := range r.entities {
		if e.ID == id {
			return e, true
		}
	}
	return model.MonitoredEntity{}, false
}

// Entities returns a copy of the list in display order.
func (r *Registry) Entities() []model.MonitoredEntity {
	out := make([]model.MonitoredEntity, len(r.entities))
	copy(out, r.entities)
	return out
}

// Len returns the number of monitored entities.
func (r *Registry) Len() int { return len(r.entities) }

// persist writes the full list. A failed write is logged; the in-memory
// list stays authoritative for the session.
func (r *Registry) persist() {
	list := r.entities
	if list == nil {
		list = []model.MonitoredEntity{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		r.logger.Error("encode events", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Put(ctx, r.key, raw); err != nil {
		r.logger.Error("persist events", "error", err, "count", len(r.entities))
	}
}
