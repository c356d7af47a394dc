// Package store holds the client-side state containers: authentication,
// tasks, and theme. Each store owns its slice of state, mirrors it into the
// shared localstore keys, and notifies subscribers after every mutation.
//
// Mutations are atomic per store (a mutex stands in for the original
// single-threaded scheduler) and persistence is written synchronously inside
// the mutation. Racing mutations resolve last-writer-wins; there is no
// request queue. Initialize never fails: a corrupt persisted value is purged
// and the store falls back to its default.
package store

import "sync"

// notifier fans a state snapshot out to subscribers. Subscribing returns an
// unsubscribe func.
type notifier[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func (n *notifier[T]) subscribe(fn func(T)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(T))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier[T]) publish(state T) {
	n.mu.Lock()
	fns := make([]func(T), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}
