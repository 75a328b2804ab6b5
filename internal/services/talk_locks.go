package services

import "sync"

// TalkLocks serializes work on a single talk across services: booking a
// seat, patching the talk and deleting it each read the talk before
// writing. The talk and registration services must share one instance.
// A nil *TalkLocks does no locking.
type TalkLocks struct {
	mu    sync.Mutex
	locks map[string]*talkLock
}

type talkLock struct {
	mu   sync.Mutex
	refs int
}

// NewTalkLocks returns an empty lock table.
func NewTalkLocks() *TalkLocks {
	return &TalkLocks{locks: make(map[string]*talkLock)}
}

// Lock blocks until talkID is free and returns the matching unlock. Entries
// are dropped once nobody holds or waits for them.
func (l *TalkLocks) Lock(talkID string) (unlock func()) {
	if l == nil {
		return func() {}
	}
	l.mu.Lock()
	tl, ok := l.locks[talkID]
	if !ok {
		tl = &talkLock{}
		l.locks[talkID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, talkID)
		}
		l.mu.Unlock()
	}
}

func (l *TalkLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
