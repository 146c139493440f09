package ptybackend

// retainBuffer keeps the most recent output bytes for a session so a pane
// rebuilt after navigation can replay what it missed. Trimming happens at
// the byte level; a cut that lands inside a multi-byte character is
// repaired by the workspace decoder's replacement handling. The buffer also
// tracks the cumulative stream offset of its newest byte so snapshots and
// push events share one coordinate.
type retainBuffer struct {
	data []byte
	max  int
	end  int64
}

func newRetainBuffer(max int) *retainBuffer {
	if max <= 0 {
		max = defaultScrollbackMax
	}
	return &retainBuffer{max: max}
}

// Append adds output, discarding the oldest bytes beyond the cap.
func (r *retainBuffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	r.end += int64(len(data))
	if len(data) >= r.max {
		r.data = append(r.data[:0], data[len(data)-r.max:]...)
		return
	}
	r.data = append(r.data, data...)
	if len(r.data) > r.max {
		trim := len(r.data) - r.max
		r.data = append(r.data[:0], r.data[trim:]...)
	}
}

// Bytes returns a copy of the retained output.
func (r *retainBuffer) Bytes() []byte {
	return append([]byte(nil), r.data...)
}

// Len reports the retained byte count.
func (r *retainBuffer) Len() int {
	return len(r.data)
}

// End reports the cumulative stream offset of the newest byte ever
// appended, including bytes since trimmed away.
func (r *retainBuffer) End() int64 {
	return r.end
}
