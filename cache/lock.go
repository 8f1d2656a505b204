package cache

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Locker is the pluggable advisory lock strategy wrapped around a policy's
// read-decide-write cycle. It exists so that coordination between processes
// can be strengthened without changing observable behaviour; the default is
// no coordination at all (last-writer-wins).
type Locker interface {
	Lock() error
	Unlock() error
}

// NopLocker is the default strategy: no inter-process coordination.
type NopLocker struct{}

// Lock is a no-op.
func (NopLocker) Lock() error { return nil }

// Unlock is a no-op.
func (NopLocker) Unlock() error { return nil }

// FlockLocker serialises policies across processes with an exclusive flock
// on a well-known mutex file.
type FlockLocker struct {
	Path string

	f *os.File
}

// Lock opens the mutex file (creating it if needed) and takes an exclusive
// lock, blocking until it is granted.
func (l *FlockLocker) Lock() error {
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %v", l.Path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return fmt.Errorf("flock %s: %v", l.Path, err)
	}
	l.f = f
	return nil
}

// Unlock releases the lock and closes the mutex file.
func (l *FlockLocker) Unlock() error {
	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		f.Close()
		return fmt.Errorf("funlock %s: %v", l.Path, err)
	}
	return f.Close()
}
