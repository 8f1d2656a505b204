package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"

	e "github.com/ledgerline/ledgerline/errors"
)

// shmDir is where the kernel exposes POSIX shared memory segments.
const shmDir = "/dev/shm"

// Store is a handle onto a named shared memory segment of fixed capacity.
// Each process that wants access constructs its own Store via Open; there is
// no process-wide singleton.
type Store struct {
	name     string
	path     string
	capacity int
	buf      []byte
}

// Open attaches to the shared memory segment called name, creating it with
// exactly capacity bytes (zero-initialised by the kernel) if it does not
// already exist. An existing segment smaller than capacity is grown; the
// grown region is zero-filled.
func Open(name string, capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, e.New(
			"shm.Open",
			e.StoreUnavailable,
			fmt.Sprintf("invalid capacity %d", capacity),
		)
	}

	path := filepath.Join(shmDir, name)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0600)
	if err != nil {
		return nil, e.New(
			"shm.Open",
			e.StoreUnavailable,
			fmt.Sprintf("open %s: %v", path, err),
		)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, e.New(
			"shm.Open",
			e.StoreUnavailable,
			fmt.Sprintf("stat %s: %v", path, err),
		)
	}

	if st.Size < int64(capacity) {
		if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
			return nil, e.New(
				"shm.Open",
				e.StoreUnavailable,
				fmt.Sprintf("truncate %s to %d: %v", path, capacity, err),
			)
		}
		if glog.V(2) {
			glog.Infof("Created shared memory segment %s (%d bytes)", name, capacity)
		}
	} else if glog.V(2) {
		glog.Infof("Attached to existing shared memory segment %s", name)
	}

	buf, err := unix.Mmap(
		fd,
		0,
		capacity,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, e.New(
			"shm.Open",
			e.StoreUnavailable,
			fmt.Sprintf("mmap %s: %v", path, err),
		)
	}

	return &Store{
		name:     name,
		path:     path,
		capacity: capacity,
		buf:      buf,
	}, nil
}

// Name returns the segment name given at Open.
func (s *Store) Name() string {
	return s.name
}

// Capacity returns the fixed capacity in bytes.
func (s *Store) Capacity() int {
	return s.capacity
}

// Put zero-fills the entire region and then writes payload at offset 0. The
// clear-then-write order means a payload shorter than its predecessor never
// leaves stale trailing bytes behind. Payloads larger than the capacity are
// rejected without touching the region.
func (s *Store) Put(payload []byte) error {
	if len(payload) > s.capacity {
		return e.New(
			"shm.Put",
			e.PayloadTooLarge,
			fmt.Sprintf(
				"refusing to put %d bytes into a %d byte store",
				len(payload),
				s.capacity,
			),
		)
	}

	s.Clear()
	copy(s.buf, payload)

	return nil
}

// Read returns a copy of the full capacity-length buffer, trailing zero
// bytes included. Callers are responsible for trimming.
func (s *Store) Read() []byte {
	out := make([]byte, s.capacity)
	copy(out, s.buf)
	return out
}

// Clear zero-fills the entire region.
func (s *Store) Clear() {
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// Close unmaps the segment. The segment itself stays alive in the kernel for
// other attached processes, and for later re-attachers, until someone calls
// Destroy. Close is idempotent.
func (s *Store) Close() error {
	if s.buf == nil {
		return nil
	}
	buf := s.buf
	s.buf = nil
	return unix.Munmap(buf)
}

// Destroy unmaps the segment and unlinks the name so it becomes available
// for reuse. Safe to call when the segment is already gone.
func (s *Store) Destroy() error {
	if err := s.Close(); err != nil {
		glog.Warningf("munmap %s: %v", s.name, err)
	}
	if err := unix.Unlink(s.path); err != nil && !os.IsNotExist(err) {
		return e.New(
			"shm.Destroy",
			e.StoreUnavailable,
			fmt.Sprintf("unlink %s: %v", s.path, err),
		)
	}
	return nil
}
