package snake

// ActionSource steers the entity. Env.Tick consults it once per tick, before
// moving, with the outcome of the previous tick still observable.
type ActionSource interface {
	NextOrientation(obs Observation) (Orientation, bool)
}

// KeyboardSource is the action source for a human player: the front-end
// presses keys, the environment picks them up on the next tick.
type KeyboardSource struct {
	pending Orientation
	hasKey  bool
}

// NewKeyboardSource creates an idle keyboard source.
func NewKeyboardSource() *KeyboardSource {
	return &KeyboardSource{}
}

// Press buffers an orientation for the next tick. Only the first press of a
// tick is kept and unknown orientations are ignored.
func (k *KeyboardSource) Press(o Orientation) {
	if !o.Valid() || k.hasKey {
		return
	}
	k.pending = o
	k.hasKey = true
}

// NextOrientation hands over the buffered press, if any.
func (k *KeyboardSource) NextOrientation(Observation) (Orientation, bool) {
	if !k.hasKey {
		return 0, false
	}
	k.hasKey = false
	return k.pending, true
}
