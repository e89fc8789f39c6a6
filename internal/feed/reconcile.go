package feed

import (
	"sync"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
)

// Reconciler diffs each fetched incident set against the previously known
// set, producing a minimal changeset so presentation never re-derives
// identity itself. It owns the known set exclusively.
type Reconciler struct {
	mu    sync.Mutex
	known map[string]domain.RawIncident
}

// NewReconciler creates a reconciler with an empty known set, so the first
// fetch after process start reports every incident as created.
func NewReconciler() *Reconciler {
	return &Reconciler{
		known: make(map[string]domain.RawIncident),
	}
}

// Reconcile compares fetched against the known set and swaps the known set
// for the new mapping. Afterwards the known keys equal the fetched keys
// exactly, regardless of prior state. It never fails; on an upstream fetch
// failure it is simply not called, leaving the prior state intact.
func (r *Reconciler) Reconcile(fetched []domain.RawIncident) domain.ChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Last wins on duplicate keys. The transport should not send any, but a
	// duplicate must not corrupt the diff.
	next := make(map[string]domain.RawIncident, len(fetched))
	for _, inc := range fetched {
		next[inc.Key] = inc
	}

	changes := domain.ChangeSet{
		Created: domain.KeySet{},
		Updated: domain.KeySet{},
		Removed: domain.KeySet{},
	}

	for key := range r.known {
		if _, ok := next[key]; !ok {
			changes.Removed[key] = struct{}{}
		}
	}

	for key, inc := range next {
		prev, ok := r.known[key]
		switch {
		case !ok:
			changes.Created[key] = struct{}{}
		case changed(prev, inc):
			changes.Updated[key] = struct{}{}
		}
	}

	r.known = next
	return changes
}

// KnownKeys returns the identity keys of the current known set, sorted.
func (r *Reconciler) KnownKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := domain.KeySet{}
	for k := range r.known {
		keys[k] = struct{}{}
	}
	return keys.Sorted()
}

// changed is the cheap record differentiator: the last-updated timestamp
// moves on every substantive edit, and the update-log length catches edits
// that somehow leave it untouched. A field-wise deep compare is not needed.
func changed(prev, next domain.RawIncident) bool {
	return !prev.UpdatedAt.Equal(next.UpdatedAt) || len(prev.Updates) != len(next.Updates)
}
