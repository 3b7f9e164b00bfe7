// Package domain contains entity without logic, just meta-data
package domain

import "strings"

// SnoopPrefix is the name prefix the platform gives to channels created by a
// snoop request.
const SnoopPrefix = "Snoop"

type ChannelID string

type SessionKind int

const (
	Participant SessionKind = iota
	Listener
)

func (k SessionKind) String() string {
	switch k {
	case Listener:
		return "listener"
	default:
		return "participant"
	}
}

// Classify tells participant legs apart from snoop legs by channel name.
func Classify(name string) SessionKind {
	if strings.HasPrefix(name, SnoopPrefix) {
		return Listener
	}
	return Participant
}

// CallSession is a live call leg. Kind is fixed when the session is first
// observed.
type CallSession struct {
	ID   ChannelID   `json:"id"`
	Name string      `json:"name"`
	Kind SessionKind `json:"-"`
}

func NewCallSession(id, name string) CallSession {
	return CallSession{ID: ChannelID(id), Name: name, Kind: Classify(name)}
}

// TriggerEvent is a single key press from a participant.
type TriggerEvent struct {
	Digit string
	From  CallSession
}
