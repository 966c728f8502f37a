package core

import "testing"

func TestInputFrame(t *testing.T) {
	f := NewInputFrame()
	if f.Has(ActionUp) {
		t.Fatal("new frame should be empty")
	}

	f.Set(ActionUp)
	f.Set(ActionPause)
	if !f.Has(ActionUp) || !f.Has(ActionPause) {
		t.Error("frame should contain the actions that were set")
	}

	f.Clear()
	if f.Has(ActionUp) || f.Has(ActionPause) {
		t.Error("Clear should drop every action")
	}

	var zero InputFrame
	if zero.Has(ActionQuit) {
		t.Error("zero frame should report no actions")
	}
	zero.Set(ActionQuit)
	if !zero.Has(ActionQuit) {
		t.Error("Set on zero frame should allocate")
	}
}

func TestActionIsSteering(t *testing.T) {
	tests := []struct {
		a        Action
		expected bool
	}{
		{ActionUp, true},
		{ActionDown, true},
		{ActionLeft, true},
		{ActionRight, true},
		{ActionNone, false},
		{ActionPause, false},
		{ActionToggleTraining, false},
		{ActionQuit, false},
	}
	for _, tc := range tests {
		t.Run(tc.a.String(), func(t *testing.T) {
			if got := tc.a.IsSteering(); got != tc.expected {
				t.Errorf("IsSteering() = %v, expected %v", got, tc.expected)
			}
		})
	}
}
