package app

import (
	"context"

	"github.com/looplab/fsm"
)

// Participant stages, in admission order.
const (
	StageRinging    = "ringing"
	StageIdentified = "identified"
	StageResolved   = "resolved"
	StageSubscribed = "subscribed"
	StageAnswered   = "answered"
	StageJoined     = "joined"
	StageAnnounced  = "announced"
)

// Listener stages.
const (
	StageAttached = "attached"
	StagePlaying  = "playing"
	StageFinished = "finished"
	StageHungUp   = "hungup"
)

const StageFailed = "failed"

const (
	EventIdentify  = "identify"
	EventResolve   = "resolve"
	EventSubscribe = "subscribe"
	EventAnswer    = "answer"
	EventJoin      = "join"
	EventAnnounce  = "announce"

	EventPlay   = "play"
	EventFinish = "finish"
	EventHangup = "hangup"

	EventFail = "fail"
)

const failedAtKey = "failed_at"

// Lifecycle is the staged state of one session's flow.
type Lifecycle struct {
	fsm *fsm.FSM
}

func NewAdmissionLifecycle() *Lifecycle {
	return newLifecycle(StageRinging, fsm.Events{
		{Name: EventIdentify, Src: []string{StageRinging}, Dst: StageIdentified},
		{Name: EventResolve, Src: []string{StageIdentified}, Dst: StageResolved},
		{Name: EventSubscribe, Src: []string{StageResolved}, Dst: StageSubscribed},
		{Name: EventAnswer, Src: []string{StageSubscribed}, Dst: StageAnswered},
		{Name: EventJoin, Src: []string{StageAnswered}, Dst: StageJoined},
		{Name: EventAnnounce, Src: []string{StageJoined}, Dst: StageAnnounced},
		{Name: EventFail, Src: []string{StageRinging, StageIdentified, StageResolved, StageSubscribed, StageAnswered, StageJoined}, Dst: StageFailed},
	})
}

func NewListenerLifecycle() *Lifecycle {
	return newLifecycle(StageAttached, fsm.Events{
		{Name: EventPlay, Src: []string{StageAttached}, Dst: StagePlaying},
		{Name: EventFinish, Src: []string{StagePlaying}, Dst: StageFinished},
		{Name: EventHangup, Src: []string{StagePlaying, StageFinished}, Dst: StageHungUp},
		{Name: EventFail, Src: []string{StageAttached, StagePlaying, StageFinished}, Dst: StageFailed},
	})
}

func newLifecycle(initial string, events fsm.Events) *Lifecycle {
	l := &Lifecycle{}
	l.fsm = fsm.NewFSM(initial, events, fsm.Callbacks{
		"enter_" + StageFailed: func(_ context.Context, e *fsm.Event) {
			e.FSM.SetMetadata(failedAtKey, e.Src)
		},
	})
	return l
}

func (l *Lifecycle) Advance(ctx context.Context, event string) error {
	return l.fsm.Event(ctx, event)
}

// Fail moves the flow to the failed stage and returns the stage it was in.
func (l *Lifecycle) Fail(ctx context.Context) string {
	stage := l.fsm.Current()
	if err := l.fsm.Event(ctx, EventFail); err != nil {
		return stage
	}
	return l.FailedAt()
}

func (l *Lifecycle) FailedAt() string {
	v, ok := l.fsm.Metadata(failedAtKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (l *Lifecycle) Stage() string { return l.fsm.Current() }
