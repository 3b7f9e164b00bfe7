package domain

import "time"

type EventType string

const (
	EventParticipantJoined EventType = "participant_joined"
	EventTrigger           EventType = "trigger"
	EventListenerSpawned   EventType = "listener_spawned"
	EventListenerFinished  EventType = "listener_finished"
	EventSessionEnded      EventType = "session_ended"
)

// Event is what observers of the conference receive.
type Event struct {
	Type       EventType      `json:"type"`
	Channel    ChannelID      `json:"channel,omitempty"`
	Name       string         `json:"name,omitempty"`
	CallerID   string         `json:"caller_id,omitempty"`
	Target     ChannelID      `json:"target,omitempty"`
	Conference ConferenceName `json:"conference,omitempty"`
	At         time.Time      `json:"at"`
}
