package session

import (
	"context"
	"fmt"

	"github.com/iliyamo/tm-monitor/internal/model"
	"github.com/iliyamo/tm-monitor/internal/protocol"
	"github.com/iliyamo/tm-monitor/internal/transport"
)

// onTransportEvent is the transport's sink. It runs on the transport's
// goroutine and only hands the event to the loop.
func (s *Session) onTransportEvent(ev transport.Event) {
	s.post(func() { s.handleTransport(ev) })
}

func (s *Session) handleTransport(ev transport.Event) {
	switch ev.Kind {
	case transport.EventOpened:
		s.onOpened()
	case transport.EventMessage:
		s.route(ev.Payload)
	case transport.EventError:
		s.logger.Warn("transport error", "error", ev.Err)
		s.onDown()
	case transport.EventClosed:
		s.logger.Info("connection closed", "code", ev.Code, "reason", ev.Reason)
		s.onDown()
	}
}

// onOpened resumes monitoring on a fresh connection: probe, re-announce
// every stored event and pull the current connection statuses.
func (s *Session) onOpened() {
	wasRetrying := s.supervisor.Attempts() > 0
	s.supervisor.Opened()
	s.liveness.Arm()
	s.send(protocol.Ping{Message: "Frontend connected"})

	entities := s.registry.Entities()
	for _, e := range entities {
		s.send(protocol.ReconnectEvent{EventURL: e.URL, EventID: e.ID, EventName: e.Name})
	}
	s.logger.Info("connected", "reannounced", len(entities))
	if wasRetrying {
		s.setNotice(NoticeSuccess, "Reconnected to backend")
	}
	s.refreshConnectionStatusesAsync()
	s.render.Trigger()
}

func (s *Session) onDown() {
	s.liveness.Disarm()
	if s.pendingAdd != nil {
		s.logger.Warn("abandoning pending add", "url", s.pendingAdd.URL)
		s.pendingAdd = nil
		s.setNotice(NoticeError, "Connection lost before the event was confirmed")
	}
	s.supervisor.Failed()
	s.render.Trigger()
}

// route applies one inbound payload. State is mutated here, immediately;
// only the snapshot waits for the debouncer.
func (s *Session) route(payload []byte) {
	s.liveness.Touch()
	defer s.render.Trigger()

	msg, err := protocol.Decode(payload)
	if err != nil {
		s.logger.Warn("dropping malformed message", "error", err)
		return
	}

	switch m := msg.(type) {
	case protocol.PingReceived, protocol.Pong:
	case protocol.EventAdded:
		s.onEventAdded(m)
	case protocol.EventReconnected:
		s.logger.Debug("event reconnected", "event_id", m.EventID)
	case protocol.EventUpdate:
		if !s.registry.UpdateStatus(m.EventID, m.Status, m.Data) {
			s.logger.Debug("status for unknown event", "event_id", m.EventID)
		}
	case protocol.EventDeleted:
		s.logger.Info("backend deleted event", "event_name", m.EventName, "message", m.Message)
	case protocol.MonitorUpdate:
		s.onMonitorUpdate(m.AvailabilityUpdate)
	case protocol.ConnectionStatusUpdate:
		if m.EventID == "" {
			s.logger.Warn("connection status without event id")
			return
		}
		s.registry.SetConnectionStatus(m.ConnectionStatus())
	case protocol.ErrorMessage:
		s.logger.Warn("backend error", "message", m.Message)
		s.pendingAdd = nil
		s.setNotice(NoticeError, m.Message)
	case protocol.Unknown:
		s.logger.Warn("ignoring unknown message", "type", m.Type)
	}
}

func (s *Session) onEventAdded(m protocol.EventAdded) {
	c := s.pendingAdd
	if c == nil {
		s.logger.Warn("event_added without a pending add", "event_id", m.EventID)
		return
	}
	s.pendingAdd = nil

	id, name := m.EventID, m.EventName
	if id == "" {
		id = c.ID
	}
	if name == "" {
		name = c.Name
	}
	e, err := s.registry.Confirm(c.URL, id, name)
	if err != nil {
		s.logger.Warn("confirm event", "event_id", id, "error", err)
		s.setNotice(NoticeError, fmt.Sprintf("Could not add event: %v", err))
		return
	}
	s.logger.Info("event added", "event_id", e.ID, "name", e.Name)
	s.setNotice(NoticeSuccess, fmt.Sprintf("Now monitoring %s", e.Name))
}

func (s *Session) onMonitorUpdate(u model.AvailabilityUpdate) {
	e, ok := s.registry.Get(u.EntityID)
	if !ok {
		s.logger.Debug("update for unknown event", "event_id", u.EntityID)
		return
	}
	s.notes.Record(u)

	n := len(u.Seats)
	if n == 0 {
		return
	}
	switch u.Kind {
	case model.KindAdded:
		s.setNotice(NoticeSuccess, fmt.Sprintf("%d new ticket(s) available!", n))
		s.alert(e.Name, u)
	case model.KindRemoved:
		s.setNotice(NoticeInfo, fmt.Sprintf("%d ticket(s) no longer available", n))
	}
}

func (s *Session) alert(name string, u model.AvailabilityUpdate) {
	s.logger.Info("tickets available", "event_id", u.EntityID, "event_name", name, "seats", len(u.Seats))
	if s.alerter == nil {
		return
	}
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(s.runCtx, s.cfg.RequestTimeout)
		defer cancel()
		if err := s.alerter.Alert(ctx, name, u); err != nil {
			s.logger.Warn("publish alert", "event_id", u.EntityID, "error", err)
		}
	})
}
