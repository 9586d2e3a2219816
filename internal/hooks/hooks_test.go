package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHandler(t *testing.T) {
	hm := NewHookManager()
	require.NoError(t, hm.RegisterHandler(HookAfterWrite, func(context.Context, Event) error { return nil }))
	assert.Equal(t, 1, hm.Count(HookAfterWrite))
	assert.Equal(t, 0, hm.Count(HookBeforeWrite))

	assert.Error(t, hm.RegisterHandler("session_start", func(context.Context, Event) error { return nil }))
	assert.Error(t, hm.RegisterHandler(HookBeforeWrite, nil))
}

func TestExecute_Order(t *testing.T) {
	hm := NewHookManager()
	var calls []string
	for _, name := range []string{"first", "second"} {
		name := name
		require.NoError(t, hm.RegisterHandler(HookBeforeWrite, func(_ context.Context, e Event) error {
			calls = append(calls, name+":"+e.Status)
			return nil
		}))
	}

	require.NoError(t, hm.Execute(context.Background(), HookBeforeWrite, Event{Status: "merged"}))
	assert.Equal(t, []string{"first:merged", "second:merged"}, calls)
}

func TestExecute_StopsOnError(t *testing.T) {
	hm := NewHookManager()
	veto := errors.New("dirty worktree")
	called := false
	require.NoError(t, hm.RegisterHandler(HookBeforeWrite, func(context.Context, Event) error { return veto }))
	require.NoError(t, hm.RegisterHandler(HookBeforeWrite, func(context.Context, Event) error {
		called = true
		return nil
	}))

	err := hm.Execute(context.Background(), HookBeforeWrite, Event{})
	assert.ErrorIs(t, err, veto)
	assert.Contains(t, err.Error(), "hook before_write failed")
	assert.False(t, called)
}

func TestExecute_NoHandlersAndNilManager(t *testing.T) {
	assert.NoError(t, NewHookManager().Execute(context.Background(), HookAfterWrite, Event{}))

	var hm *HookManager
	assert.NoError(t, hm.Execute(context.Background(), HookAfterWrite, Event{}))
}

func TestExecute_Cancelled(t *testing.T) {
	hm := NewHookManager()
	require.NoError(t, hm.RegisterHandler(HookAfterWrite, func(context.Context, Event) error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hm.Execute(ctx, HookAfterWrite, Event{}), context.Canceled)
}
