package bus

import "github.com/ppiankov/triage/internal/model"

// ring is a fixed-capacity event buffer. Appends past capacity overwrite
// the oldest entry; reads return retained events in append order.
type ring struct {
	buf   []model.Event
	start int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]model.Event, capacity)}
}

func (r *ring) append(event model.Event) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = event
		r.count++
		return
	}
	r.buf[r.start] = event
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) events() []model.Event {
	out := make([]model.Event, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
