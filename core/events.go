package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates realtime domain events.
type EventType string

const (
	EventBoardCreated EventType = "board_created"
	EventRoomJoined   EventType = "room_joined"
)

// Event is emitted after a message was dispatched successfully.
// Origin identifies the pool registration of the session that sent the message;
// zero means the event did not come from a websocket session (e.g. the HTTP API).
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	Origin   uint64         `json:"origin,omitempty"`
	ID       uuid.UUID      `json:"id"`
	Response ClientResponse `json:"-"`
}

func NewBoardCreated(origin uint64, id uuid.UUID) Event {
	return Event{Type: EventBoardCreated, Time: time.Now().UTC(), Origin: origin, ID: id, Response: BoardCreated{ID: id}}
}

func NewRoomJoined(origin uint64, room uuid.UUID) Event {
	return Event{Type: EventRoomJoined, Time: time.Now().UTC(), Origin: origin, ID: room, Response: RoomJoined{ID: room}}
}
