package recognition

import (
	"context"
	"sync"
)

type fakeDirectory struct {
	known   map[string]bool
	err     error
	lookups []string
}

func (f *fakeDirectory) IdentityExists(_ context.Context, key string) (bool, error) {
	f.lookups = append(f.lookups, key)
	if f.err != nil {
		return false, f.err
	}
	return f.known[key], nil
}

type fakeLedger struct {
	mu        sync.Mutex
	events    map[string]Mark // key: student|date
	inserts   int
	existsErr error
	insertErr error
	// raceOnInsert simulates a concurrent writer winning the unique index.
	raceOnInsert bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{events: map[string]Mark{}}
}

func (f *fakeLedger) EventExists(_ context.Context, key, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.events[key+"|"+date]
	return ok, nil
}

func (f *fakeLedger) InsertEvent(_ context.Context, m Mark) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	f.inserts++
	if f.raceOnInsert {
		return false, nil
	}
	k := m.StudentID + "|" + m.Date
	if _, ok := f.events[k]; ok {
		return false, nil
	}
	f.events[k] = m
	return true, nil
}
