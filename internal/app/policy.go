package app

import (
	"math/rand/v2"

	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickObserver
	DropFrame
)

// Policy decides what happens to an observer that cannot keep up.
type Policy interface {
	OnBackPressure(id core.ObserverID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.ObserverID) BackpressureAction {
	return KickObserver
}

// TargetPolicy picks the member that gets the listener attached.
// from is the participant that pressed the trigger.
type TargetPolicy interface {
	Pick(members []string, from domain.ChannelID) (string, bool)
}

type TargetPolicyFunc func(members []string, from domain.ChannelID) (string, bool)

func (f TargetPolicyFunc) Pick(members []string, from domain.ChannelID) (string, bool) {
	return f(members, from)
}

// RandomPolicy draws uniformly from the members. The presser is eligible
// unless ExcludeSelf is set and someone else is in the bridge.
type RandomPolicy struct {
	ExcludeSelf bool
	// IntN defaults to math/rand/v2.IntN.
	IntN func(n int) int
}

func (p RandomPolicy) Pick(members []string, from domain.ChannelID) (string, bool) {
	pool := members
	if p.ExcludeSelf {
		others := make([]string, 0, len(members))
		for _, m := range members {
			if m != string(from) {
				others = append(others, m)
			}
		}
		if len(others) > 0 {
			pool = others
		}
	}
	if len(pool) == 0 {
		return "", false
	}
	intn := p.IntN
	if intn == nil {
		intn = rand.IntN
	}
	return pool[intn(len(pool))], true
}
