package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Client-originated events.
const (
	EventJoinProject  = "joinProject"
	EventLeaveProject = "leaveProject"
	EventPing         = "ping"
)

// Server-originated events.
const (
	EventJoined       = "joined"
	EventLeft         = "left"
	EventPong         = "pong"
	EventNewMessage   = "newMessage"
	EventUnreadCount  = "unreadCount"
	EventNotification = "notification"
	EventError        = "error"
)

type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Inbound is a frame sent by a socket client.
type Inbound struct {
	Event     string `json:"event"`
	ProjectID string `json:"projectId"`
}

func ProjectRoom(projectID uuid.UUID) string {
	return "project:" + projectID.String()
}

func encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
