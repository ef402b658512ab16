package telnet

// optionState tracks one option code's local/remote enable bits.
type optionState struct {
	local  bool
	remote bool
}

// Options is the per-option-code registry (§3, §4.A). It never
// performs I/O and never retries; it is pure bookkeeping plus the
// derived-projection recompute step.
type Options struct {
	states [256]optionState

	// Derived projections, recomputed as a single pass after any
	// option change. Never read by the Framer — only by the Session
	// Loop and the External Relay.
	Binary         bool
	Echo           bool
	SGA            bool
	LinemodeActive bool
	LinemodeEdit   bool

	linemodeMode byte // last MODE byte received, for LinemodeEdit projection
}

// NewOptions returns a registry with every option disabled.
func NewOptions() *Options {
	return &Options{}
}

// Local reports whether option opt is enabled on the local side.
func (o *Options) Local(opt byte) bool { return o.states[opt].local }

// Remote reports whether option opt is enabled on the remote side.
func (o *Options) Remote(opt byte) bool { return o.states[opt].remote }

// SetLocal sets the local enable bit for opt and returns whether it
// actually changed (the caller uses this to decide whether a
// WILL/WONT reply is owed — §8's "responds at most once" invariant).
func (o *Options) SetLocal(opt byte, enabled bool) bool {
	if o.states[opt].local == enabled {
		return false
	}
	o.states[opt].local = enabled
	o.recomputeProjections()
	return true
}

// SetRemote sets the remote enable bit for opt, same change-reporting
// contract as SetLocal.
func (o *Options) SetRemote(opt byte, enabled bool) bool {
	if o.states[opt].remote == enabled {
		return false
	}
	o.states[opt].remote = enabled
	o.recomputeProjections()
	return true
}

// SetLinemodeMode records a LINEMODE MODE byte (§4.D) and recomputes
// the derived LinemodeEdit projection.
func (o *Options) SetLinemodeMode(mode byte) {
	o.linemodeMode = mode
	o.recomputeProjections()
}

// recomputeProjections is idempotent (§8): calling it twice in a row
// with no intervening mutation yields the same projections.
func (o *Options) recomputeProjections() {
	o.Binary = o.states[OptBinary].local && o.states[OptBinary].remote
	o.Echo = o.states[OptEcho].remote
	o.SGA = o.states[OptSGA].local || o.states[OptSGA].remote
	o.LinemodeActive = o.states[OptLinemode].local
	o.LinemodeEdit = o.LinemodeActive && o.linemodeMode&ModeEdit != 0
}

// Snapshot captures the bits the Transfer Supervisor needs to save and
// later restore around a file transfer (§3 Transfer State).
type Snapshot struct {
	BinaryLocal, BinaryRemote bool
	EchoLocal, EchoRemote     bool
	SGALocal, SGARemote       bool
	LinemodeActive            bool
}

// Save returns the bits the Supervisor restores on transfer exit.
func (o *Options) Save() Snapshot {
	return Snapshot{
		BinaryLocal:    o.states[OptBinary].local,
		BinaryRemote:   o.states[OptBinary].remote,
		EchoLocal:      o.states[OptEcho].local,
		EchoRemote:     o.states[OptEcho].remote,
		SGALocal:       o.states[OptSGA].local,
		SGARemote:      o.states[OptSGA].remote,
		LinemodeActive: o.states[OptLinemode].local,
	}
}
