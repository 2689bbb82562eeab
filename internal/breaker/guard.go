package breaker

// Guard is a scoped-acquisition handle standing in for the Python
// original's `async with breaker.protect():` context manager (see Design
// Notes §9). Acquire, do the protected work, then Release(err) — success
// is inferred from whether the protected scope produced an error.
//
//	g, err := b.Acquire()
//	if err != nil {
//	    return err // *ErrCircuitOpen
//	}
//	defer func() { g.Release(err) }()
//	err = callExternalService()
type Guard struct {
	b *Breaker
}

// Acquire checks the breaker and, if allowed, returns a Guard that must be
// released exactly once with the outcome of the protected work.
func (b *Breaker) Acquire() (*Guard, error) {
	if err := b.Allow(); err != nil {
		return nil, err
	}
	return &Guard{b: b}, nil
}

// Release records the outcome of the protected scope. Pass the error (or
// nil) produced by the work performed between Acquire and Release.
func (g *Guard) Release(err error) {
	if g == nil || g.b == nil {
		return
	}
	if err != nil {
		g.b.RecordFailure(err)
		return
	}
	g.b.RecordSuccess()
}
