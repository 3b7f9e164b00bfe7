package orch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/confdemo/internal/app"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/dkeye/confdemo/internal/testutil/fakeplatform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	snoopOp = "snoop:spy=none:whisper=out:app=conf-demo"
	getCID  = "getvar:" + callerIDVariable
)

func newTestOrchestrator(p *fakeplatform.Platform) *Orchestrator {
	o := &Orchestrator{
		Provider:        p,
		Conference:      app.NewConferenceRegistry(p.Bridges(), "", "", nil),
		Registry:        app.NewRegistry(),
		Targets:         app.RandomPolicy{},
		Hub:             app.NewHub(nil),
		Media:           Media{Beep: "sound:beep", Prank: "sound:tt-monkeys"},
		TriggerDigit:    "#",
		PlaybackTimeout: time.Second,
	}
	p.Attach(o)
	return o
}

func addCaller(p *fakeplatform.Platform, id, name string) {
	p.AddChannel(id, "PJSIP/"+id+"-00000001", map[string]string{
		callerIDVariable: fmt.Sprintf("%q <%s>", name, id),
	})
}

func join(t *testing.T, o *Orchestrator, p *fakeplatform.Platform, id, name string) {
	t.Helper()
	addCaller(p, id, name)
	p.Start(context.Background(), id)
	o.Wait()
}

func conferenceID(t *testing.T, o *Orchestrator) string {
	t.Helper()
	conf, ok := o.Conference.Cached()
	require.True(t, ok)
	return conf.ID()
}

func count(ops []string, op string) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func TestFirstCallerCreatesConference(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)

	join(t, o, p, "alice", "Alice")

	assert.Equal(t, 1, p.Creates())
	bridge := conferenceID(t, o)
	assert.Equal(t, []string{"alice"}, p.Members(bridge))
	assert.Equal(t, []string{"add:alice", "play:sound:beep"}, p.Ops(bridge))
	assert.Equal(t, []string{getCID, "dtmf:subscribe", "answer"}, p.Ops("alice"))

	snap := o.Registry.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, app.StageAnnounced, snap[0].Stage)
	assert.Equal(t, `"Alice" <alice>`, snap[0].CallerID)
}

func TestSecondCallerReusesConference(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)

	join(t, o, p, "alice", "Alice")
	lists := p.Lists()
	join(t, o, p, "bob", "Bob")

	assert.Equal(t, 1, p.Creates())
	assert.Equal(t, lists, p.Lists())
	bridge := conferenceID(t, o)
	assert.Equal(t, []string{"alice", "bob"}, p.Members(bridge))
	assert.Equal(t, 2, count(p.Ops(bridge), "play:sound:beep"))
}

func TestConcurrentArrivalsShareOneBridge(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	p.ListDelay = 20 * time.Millisecond
	o := newTestOrchestrator(p)

	const n = 10
	for i := 0; i < n; i++ {
		addCaller(p, fmt.Sprintf("c%02d", i), fmt.Sprintf("Caller %d", i))
	}
	for i := 0; i < n; i++ {
		p.Start(context.Background(), fmt.Sprintf("c%02d", i))
	}
	o.Wait()

	require.Equal(t, 1, p.Creates())
	require.Len(t, p.BridgeIDs(), 1)
	assert.Len(t, p.Members(p.BridgeIDs()[0]), n)
}

func TestNonTriggerDigitIsIgnored(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)
	join(t, o, p, "alice", "Alice")
	join(t, o, p, "bob", "Bob")

	p.PressDigit("alice", "5")
	o.Wait()

	assert.Empty(t, p.ChannelsNamed(domain.SnoopPrefix))
	assert.NotContains(t, p.Ops("alice"), snoopOp)
	assert.NotContains(t, p.Ops("bob"), snoopOp)
}

func TestTriggerWhispersIntoRandomMember(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	p.AutoFinish = true
	o := newTestOrchestrator(p)
	join(t, o, p, "alice", "Alice")
	join(t, o, p, "bob", "Bob")

	p.PressDigit("alice", "#")
	o.Wait()

	snooped := count(p.Ops("alice"), snoopOp) + count(p.Ops("bob"), snoopOp)
	assert.Equal(t, 1, snooped)

	listeners := p.ChannelsNamed(domain.SnoopPrefix)
	require.Len(t, listeners, 1)
	assert.Equal(t, []string{"play:sound:tt-monkeys", "hangup"}, p.Ops(listeners[0]))

	// the participants are untouched
	assert.ElementsMatch(t, []string{"alice", "bob"}, p.Members(conferenceID(t, o)))
	assert.Equal(t, 1, p.Subscribers("alice"))
}

func TestTriggerReadsFreshMembership(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)

	var mu sync.Mutex
	var pools [][]string
	o.Targets = app.TargetPolicyFunc(func(members []string, _ domain.ChannelID) (string, bool) {
		mu.Lock()
		defer mu.Unlock()
		pools = append(pools, append([]string(nil), members...))
		return "", false
	})

	join(t, o, p, "A", "A")
	bridge := conferenceID(t, o)

	p.SetMembers(bridge, "A", "B", "C")
	p.PressDigit("A", "#")
	o.Wait()

	p.SetMembers(bridge, "A", "C", "D")
	p.PressDigit("A", "#")
	o.Wait()

	require.Len(t, pools, 2)
	assert.Equal(t, []string{"A", "B", "C"}, pools[0])
	assert.Equal(t, []string{"A", "C", "D"}, pools[1])
}

func TestTriggerOnEmptyConference(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)
	join(t, o, p, "alice", "Alice")
	p.SetMembers(conferenceID(t, o))

	assert.NotPanics(t, func() {
		p.PressDigit("alice", "#")
		o.Wait()
	})
	assert.Empty(t, p.ChannelsNamed(domain.SnoopPrefix))
	assert.NotContains(t, p.Ops("alice"), snoopOp)
}

func TestTriggerFailureLeavesConference(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)
	join(t, o, p, "alice", "Alice")

	p.Fail("channels.get", errors.New("gone"))
	p.PressDigit("alice", "#")
	o.Wait()

	assert.Empty(t, p.ChannelsNamed(domain.SnoopPrefix))
	assert.Equal(t, []string{"alice"}, p.Members(conferenceID(t, o)))
	assert.NotContains(t, p.Ops("alice"), "hangup")
}

func TestListenerSkipsAdmission(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	p.AutoFinish = true
	o := newTestOrchestrator(p)

	p.AddChannel("snoop-x", "Snoop/alice-00000009", nil)
	p.Start(context.Background(), "snoop-x")
	o.Wait()

	ops := p.Ops("snoop-x")
	assert.Equal(t, []string{"play:sound:tt-monkeys", "hangup"}, ops)
	for _, op := range ops {
		assert.False(t, strings.HasPrefix(op, "dtmf"), op)
		assert.NotEqual(t, "answer", op)
	}
	assert.Zero(t, p.Lists())
	assert.Zero(t, p.Creates())
	assert.Empty(t, p.BridgeIDs())
}

func TestListenerHangsUpOnceAfterPlayback(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)

	p.AddChannel("snoop-1", "Snoop/bob-00000001", nil)
	p.Start(context.Background(), "snoop-1")

	require.Eventually(t, func() bool {
		return len(p.PlaybacksOn("snoop-1")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"play:sound:tt-monkeys"}, p.Ops("snoop-1"))

	p.FinishPlayback(p.PlaybacksOn("snoop-1")[0])
	o.Wait()

	assert.Equal(t, []string{"play:sound:tt-monkeys", "hangup"}, p.Ops("snoop-1"))
}

func TestListenerTimeoutStillHangsUp(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)
	o.PlaybackTimeout = 20 * time.Millisecond

	p.AddChannel("snoop-1", "Snoop/bob-00000001", nil)
	p.Start(context.Background(), "snoop-1")
	o.Wait()

	assert.Equal(t, []string{"play:sound:tt-monkeys", "hangup"}, p.Ops("snoop-1"))
	pbs := p.PlaybacksOn("snoop-1")
	require.Len(t, pbs, 1)
	assert.True(t, p.Stopped(pbs[0]), "playback tracking released after timeout")
}

func TestListenerCancelledReleasesPlayback(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)
	o.PlaybackTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	p.AddChannel("snoop-1", "Snoop/bob-00000001", nil)
	p.Start(ctx, "snoop-1")
	require.Eventually(t, func() bool {
		return len(p.PlaybacksOn("snoop-1")) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	o.Wait()

	assert.Equal(t, []string{"play:sound:tt-monkeys", "hangup"}, p.Ops("snoop-1"))
	assert.True(t, p.Stopped(p.PlaybacksOn("snoop-1")[0]))
}

func TestListenerPlayFailureLeavesSession(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	p.Fail("channel.play", errors.New("no such sound"))
	o := newTestOrchestrator(p)

	p.AddChannel("snoop-1", "Snoop/bob-00000001", nil)
	p.Start(context.Background(), "snoop-1")
	o.Wait()

	assert.Equal(t, []string{"play:sound:tt-monkeys"}, p.Ops("snoop-1"))
}

func TestAdmissionFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("caller id", func(t *testing.T) {
		p := fakeplatform.New("conf-demo")
		p.Fail("channel.getvar", boom)
		o := newTestOrchestrator(p)
		join(t, o, p, "alice", "Alice")

		assert.Equal(t, []string{getCID}, p.Ops("alice"))
		assert.Zero(t, p.Lists())
		snap := o.Registry.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, app.StageFailed, snap[0].Stage)
	})

	t.Run("bridge list", func(t *testing.T) {
		p := fakeplatform.New("conf-demo")
		p.Fail("bridges.list", boom)
		o := newTestOrchestrator(p)
		join(t, o, p, "alice", "Alice")

		assert.Equal(t, []string{getCID}, p.Ops("alice"))
		assert.Zero(t, p.Creates())
	})

	t.Run("answer", func(t *testing.T) {
		p := fakeplatform.New("conf-demo")
		p.Fail("channel.answer", boom)
		o := newTestOrchestrator(p)
		join(t, o, p, "alice", "Alice")

		assert.Equal(t, []string{getCID, "dtmf:subscribe", "answer"}, p.Ops("alice"))
		assert.Zero(t, p.Subscribers("alice"))
		assert.Empty(t, p.Members(conferenceID(t, o)))
	})

	t.Run("beep does not undo the join", func(t *testing.T) {
		p := fakeplatform.New("conf-demo")
		p.Fail("bridge.play", boom)
		o := newTestOrchestrator(p)
		join(t, o, p, "alice", "Alice")

		assert.Equal(t, []string{"alice"}, p.Members(conferenceID(t, o)))
		assert.Equal(t, app.StageJoined, o.Registry.Snapshot()[0].Stage)
	})
}

func TestDepartureDuringAdmissionStopsBeforeAnswer(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	p.ListDelay = 50 * time.Millisecond
	o := newTestOrchestrator(p)

	addCaller(p, "alice", "Alice")
	p.Start(context.Background(), "alice")
	p.End(context.Background(), "alice")
	o.Wait()

	ops := p.Ops("alice")
	assert.NotContains(t, ops, "answer")
	assert.Zero(t, p.Subscribers("alice"))
	assert.Empty(t, p.Members(conferenceID(t, o)))
	assert.Zero(t, o.Registry.Len())
}

func TestDepartureReleasesSession(t *testing.T) {
	p := fakeplatform.New("conf-demo")
	o := newTestOrchestrator(p)
	join(t, o, p, "alice", "Alice")
	require.Equal(t, 1, p.Subscribers("alice"))

	p.End(context.Background(), "alice")

	assert.Zero(t, o.Registry.Len())
	assert.Zero(t, p.Subscribers("alice"))

	// unknown sessions are only logged
	p.AddChannel("ghost", "PJSIP/ghost-00000001", nil)
	assert.NotPanics(t, func() { p.End(context.Background(), "ghost") })
}
