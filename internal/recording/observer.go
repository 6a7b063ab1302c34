package recording

import "sync"

// Change describes one mutated session property.
type Change struct {
	Name  string
	Value any
}

// flush delivers queued change notifications. Setters queue changes while
// they hold s.mu and flush after releasing it, so a callback may read
// session state back without deadlocking.
func (s *Session) flush(pending []Change) {
	for _, c := range pending {
		s.observers.notify(c.Name, c.Value)
	}
}

// observers is a synchronous callback list. Notifications fire after the
// backing state mutation and before the setter returns, in subscription
// order.
type observers struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Change)
}

func (o *observers) subscribe(fn func(Change)) func() {
	o.mu.Lock()
	if o.subs == nil {
		o.subs = make(map[int]func(Change))
	}
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

func (o *observers) notify(name string, value any) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	// Map iteration is randomized; deliver in subscription order.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	fns := make([]func(Change), len(ids))
	for i, id := range ids {
		fns[i] = o.subs[id]
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(Change{Name: name, Value: value})
	}
}
