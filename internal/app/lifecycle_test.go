package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmissionLifecycleInOrder(t *testing.T) {
	ctx := context.Background()
	lc := NewAdmissionLifecycle()
	assert.Equal(t, StageRinging, lc.Stage())

	for _, ev := range []string{EventIdentify, EventResolve, EventSubscribe, EventAnswer, EventJoin, EventAnnounce} {
		require.NoError(t, lc.Advance(ctx, ev))
	}
	assert.Equal(t, StageAnnounced, lc.Stage())
}

func TestAdmissionLifecycleRejectsSkippedStage(t *testing.T) {
	lc := NewAdmissionLifecycle()
	require.Error(t, lc.Advance(context.Background(), EventAnswer))
	assert.Equal(t, StageRinging, lc.Stage())
}

func TestLifecycleFailRecordsStage(t *testing.T) {
	ctx := context.Background()
	lc := NewAdmissionLifecycle()
	require.NoError(t, lc.Advance(ctx, EventIdentify))

	assert.Equal(t, StageIdentified, lc.Fail(ctx))
	assert.Equal(t, StageFailed, lc.Stage())
	assert.Equal(t, StageIdentified, lc.FailedAt())
}

func TestListenerLifecycle(t *testing.T) {
	ctx := context.Background()
	lc := NewListenerLifecycle()
	require.NoError(t, lc.Advance(ctx, EventPlay))
	require.NoError(t, lc.Advance(ctx, EventFinish))
	require.NoError(t, lc.Advance(ctx, EventHangup))
	assert.Equal(t, StageHungUp, lc.Stage())

	// terminal stage: failing is a no-op
	assert.Equal(t, StageHungUp, lc.Fail(ctx))
}
