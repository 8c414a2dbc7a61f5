package reminders

import "time"

// dedupRetention bounds how long a fired key is remembered.
const dedupRetention = 2 * time.Minute

// firedSet remembers which (task, minute) pairs already alerted in a session.
// It is owned by a single scan loop and is not safe for concurrent use.
type firedSet struct {
	entries map[string]time.Time
}

func newFiredSet() *firedSet {
	return &firedSet{entries: make(map[string]time.Time)}
}

func dedupKey(taskID, minute string) string {
	return taskID + "|" + minute
}

func (f *firedSet) seen(key string) bool {
	_, ok := f.entries[key]
	return ok
}

func (f *firedSet) record(key string, at time.Time) {
	f.entries[key] = at
}

// purge drops keys recorded more than dedupRetention before now.
func (f *firedSet) purge(now time.Time) int {
	n := 0
	for k, at := range f.entries {
		if now.Sub(at) > dedupRetention {
			delete(f.entries, k)
			n++
		}
	}
	return n
}

func (f *firedSet) len() int {
	return len(f.entries)
}
