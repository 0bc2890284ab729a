package session

import (
	"time"

	"github.com/iliyamo/tm-monitor/internal/model"
	"github.com/iliyamo/tm-monitor/internal/notify"
)

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is the latest status line shown to the user.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
	At    time.Time   `json:"at"`
}

// ConnectionView describes the stream connection.
type ConnectionView struct {
	State       string `json:"state"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
}

// EventView is one entity as displayed.
type EventView struct {
	model.MonitoredEntity
	Connection          model.ConnectionStatus `json:"connection"`
	HasNewNotifications bool                   `json:"has_new_notifications"`
	Viewed              bool                   `json:"viewed"`
	NotificationCount   int                    `json:"notification_count"`
	ShowCount           bool                   `json:"show_count"`
}

// Snapshot is the rendered state of the session.
type Snapshot struct {
	Connection ConnectionView `json:"connection"`
	Adding     bool           `json:"adding"`
	PendingURL string         `json:"pending_url,omitempty"`
	Notice     *Notice        `json:"notice,omitempty"`
	Events     []EventView    `json:"events"`
	RenderedAt time.Time      `json:"rendered_at"`
}

// NotificationView is the grouped notification feed of one entity.
type NotificationView struct {
	EventID   string             `json:"event_id"`
	EventName string             `json:"event_name"`
	Total     int                `json:"total"`
	Groups    []notify.GroupView `json:"groups"`
}
