package wheel

// The methods in this file exist only for the notify package, which needs
// to observe and flip the is_readable/is_writable bytes that InitNotified
// and OpenNotified add to the header (SPEC_FULL.md §3). They panic if the
// wheel wasn't opened in its notification-capable form, which would
// otherwise manifest as a nil pointer dereference deep in sync/atomic.

func (w *Wheel) requireNotified() {
	if w.hdr.isReadable == nil || w.hdr.isWritable == nil {
		panic("wheel: notification flags accessed on a wheel opened without InitNotified/OpenNotified")
	}
}

// ExchangeReadable atomically sets is_readable to v and returns its prior
// value.
func (w *Wheel) ExchangeReadable(v uint8) (prior uint8) {
	w.requireNotified()
	return w.hdr.isReadable.Swap(v)
}

// ExchangeWritable atomically sets is_writable to v and returns its prior
// value.
func (w *Wheel) ExchangeWritable(v uint8) (prior uint8) {
	w.requireNotified()
	return w.hdr.isWritable.Swap(v)
}

// IsReadable and IsWritable report the flags' current values, for
// diagnostics and tests; the notify package never needs to read them
// without also wanting to flip them, but external observers (e.g. a stats
// endpoint) do.
func (w *Wheel) IsReadable() uint8 {
	w.requireNotified()
	return w.hdr.isReadable.Load()
}

func (w *Wheel) IsWritable() uint8 {
	w.requireNotified()
	return w.hdr.isWritable.Load()
}
