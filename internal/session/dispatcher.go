package session

import (
	"context"
	"fmt"

	"github.com/iliyamo/tm-monitor/internal/model"
	"github.com/iliyamo/tm-monitor/internal/notify"
	"github.com/iliyamo/tm-monitor/internal/protocol"
	"github.com/iliyamo/tm-monitor/internal/registry"
)

const reconnectingNotice = "Connection to backend lost. Attempting to reconnect..."

// send encodes and writes one command. Nothing is queued: while the
// connection is not open the command is dropped and send reports false.
func (s *Session) send(cmd protocol.Command) bool {
	if s.supervisor.State() != StateConnected {
		s.logger.Debug("not connected, dropping command", "type", cmd.Kind())
		return false
	}
	raw, err := protocol.Encode(cmd)
	if err != nil {
		s.logger.Error("encode command", "type", cmd.Kind(), "error", err)
		return false
	}
	if !s.conn.Send(raw) {
		s.logger.Warn("send failed", "type", cmd.Kind())
		return false
	}
	return true
}

type result[T any] struct {
	val T
	err error
}

// do is call for functions that can fail.
func do[T any](ctx context.Context, s *Session, fn func() (T, error)) (T, error) {
	r, err := call(ctx, s, func() result[T] {
		v, err := fn()
		return result[T]{v, err}
	})
	if err != nil {
		return r.val, err
	}
	return r.val, r.err
}

// AddEvent validates url and asks the backend to monitor it. The event is
// stored only once the backend confirms with event_added; until then the
// session reports an add in flight.
func (s *Session) AddEvent(ctx context.Context, url string) (registry.Candidate, error) {
	return do(ctx, s, func() (registry.Candidate, error) {
		defer s.render.Trigger()
		if s.pendingAdd != nil {
			return registry.Candidate{}, ErrAddInFlight
		}
		c, err := s.registry.Prepare(url)
		if err != nil {
			s.setNotice(NoticeError, err.Error())
			return registry.Candidate{}, err
		}
		if !s.send(protocol.AddEvent{EventURL: c.URL, EventID: c.ID, EventName: c.Name}) {
			s.setNotice(NoticeError, reconnectingNotice)
			return registry.Candidate{}, ErrNotConnected
		}
		s.pendingAdd = &c
		s.setNotice(NoticeInfo, fmt.Sprintf("Adding %s...", c.Name))
		return c, nil
	})
}

// DeleteEvent removes an event locally and tells the backend if it can.
// It reports whether the backend was notified.
func (s *Session) DeleteEvent(ctx context.Context, id string) (bool, error) {
	return do(ctx, s, func() (bool, error) {
		e, ok := s.registry.Remove(id)
		if !ok {
			return false, registry.ErrNotFound
		}
		s.notes.Forget(id)
		defer s.render.Trigger()

		if !s.send(protocol.DeleteEvent{EventID: e.ID, EventName: e.Name}) {
			s.setNotice(NoticeError, "Deleted locally, but backend connection lost")
			return false, nil
		}
		s.setNotice(NoticeSuccess, fmt.Sprintf("Stopped monitoring %s", e.Name))
		return true, nil
	})
}

// ViewNotifications returns the grouped feed for id and marks it viewed.
// The first view in a session merges the backend's stored history; the
// fetch runs on the caller's goroutine, not the loop.
func (s *Session) ViewNotifications(ctx context.Context, id string) (NotificationView, error) {
	need, err := do(ctx, s, func() (bool, error) {
		if _, ok := s.registry.Get(id); !ok {
			return false, registry.ErrNotFound
		}
		s.notes.MarkViewed(id)
		s.render.Trigger()
		return s.backend != nil && !s.notes.HistoryLoaded(id), nil
	})
	if err != nil {
		return NotificationView{}, err
	}

	var history []model.AvailabilityUpdate
	if need {
		history, err = s.backend.Notifications(ctx, id)
		if err != nil {
			s.logger.Warn("fetch notification history", "event_id", id, "error", err)
			history = nil
		}
	}

	return do(ctx, s, func() (NotificationView, error) {
		e, ok := s.registry.Get(id)
		if !ok {
			return NotificationView{}, registry.ErrNotFound
		}
		if need {
			s.notes.MergeHistory(id, history)
		}
		return NotificationView{
			EventID:   id,
			EventName: e.Name,
			Total:     s.notes.Count(id),
			Groups:    notify.Render(s.notes.Groups(id)),
		}, nil
	})
}

// ClearNotifications deletes id's stored history on the backend and, only
// once that succeeded, drops the entries the log held when the request
// started. Updates that arrive while the request is in flight survive.
func (s *Session) ClearNotifications(ctx context.Context, id string) error {
	seen, err := do(ctx, s, func() ([]model.AvailabilityUpdate, error) {
		if _, ok := s.registry.Get(id); !ok {
			return nil, registry.ErrNotFound
		}
		return s.notes.Updates(id), nil
	})
	if err != nil {
		return err
	}

	if s.backend != nil {
		if err := s.backend.ClearNotifications(ctx, id); err != nil {
			s.logger.Warn("clear notifications", "event_id", id, "error", err)
			s.post(func() {
				s.setNotice(NoticeError, fmt.Sprintf("Failed to clear notifications: %v", err))
			})
			return err
		}
	}

	_, err = do(ctx, s, func() (struct{}, error) {
		s.notes.Clear(id, seen)
		s.setNotice(NoticeSuccess, "Notifications cleared")
		s.render.Trigger()
		return struct{}{}, nil
	})
	return err
}

// RefreshConnectionStatuses replaces every connection status with the
// backend's current view. Statuses pushed over the stream while the
// request is in flight are kept.
func (s *Session) RefreshConnectionStatuses(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	mark, err := call(ctx, s, s.registry.StatusMark)
	if err != nil {
		return err
	}
	return s.refreshConnectionStatuses(ctx, mark)
}

func (s *Session) refreshConnectionStatuses(ctx context.Context, mark uint64) error {
	statuses, err := s.backend.ConnectionStatuses(ctx)
	if err != nil {
		return fmt.Errorf("refresh connection statuses: %w", err)
	}
	_, err = do(ctx, s, func() (struct{}, error) {
		s.registry.ReplaceConnectionStatuses(statuses, mark)
		s.render.Trigger()
		return struct{}{}, nil
	})
	return err
}

// refreshConnectionStatusesAsync must run on the loop, or before it
// starts, so the push mark is read by the state's owner.
func (s *Session) refreshConnectionStatusesAsync() {
	if s.backend == nil {
		return
	}
	mark := s.registry.StatusMark()
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(s.runCtx, s.cfg.RequestTimeout)
		defer cancel()
		if err := s.refreshConnectionStatuses(ctx, mark); err != nil {
			s.logger.Warn("connection status refresh failed", "error", err)
		}
	})
}

// Reconnect starts over after retries were exhausted. It reports false
// when the session was not in the lost state.
func (s *Session) Reconnect(ctx context.Context) (bool, error) {
	return call(ctx, s, func() bool {
		ok := s.supervisor.Restart()
		if ok {
			s.setNotice(NoticeInfo, "Reconnecting...")
		}
		return ok
	})
}
