package cache

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	e "github.com/ledgerline/ledgerline/errors"
)

// memStore implements ValueStore with the same clear-then-write and
// full-capacity-read semantics as the shared memory segment, minus the
// kernel.
type memStore struct {
	capacity int
	buf      []byte
}

func newMemStore(capacity int) *memStore {
	return &memStore{capacity: capacity, buf: make([]byte, capacity)}
}

func (s *memStore) Put(payload []byte) error {
	if len(payload) > s.capacity {
		return e.New(
			"memStore.Put",
			e.PayloadTooLarge,
			fmt.Sprintf("%d > %d", len(payload), s.capacity),
		)
	}
	s.Clear()
	copy(s.buf, payload)
	return nil
}

func (s *memStore) Read() []byte {
	out := make([]byte, s.capacity)
	copy(out, s.buf)
	return out
}

func (s *memStore) Clear() {
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// stubFetcher is a scripted remote fetch collaborator.
type stubFetcher struct {
	value      int64
	observedAt int64
	err        error
	calls      int
}

func (f *stubFetcher) FetchBalance(ctx context.Context) (int64, int64, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.value, f.observedAt, nil
}

const testNow int64 = 1662000000

func newTestPolicy(
	t *testing.T,
	store ValueStore,
	fetcher Fetcher,
	minSecs int64,
) (*Policy, string) {
	filePath := filepath.Join(t.TempDir(), "cache.txt")
	p := NewPolicy(store, filePath, fetcher, minSecs, nil)
	p.now = func() time.Time { return time.Unix(testNow, 0) }
	return p, filePath
}

func seedStore(t *testing.T, store ValueStore, rec Record) {
	if err := store.Put(rec.Encode()); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func TestBootstrapTotality(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{err: e.New("stub", e.RemoteUnavailable, "down")}
	p, filePath := newTestPolicy(t, store, fetcher, 3)

	// Empty store, missing file: must not blow up
	result, err := p.GetValue(context.Background())

	if result.Value != NeverObserved {
		t.Errorf("GetValue().Value = %d, want %d", result.Value, NeverObserved)
	}
	if result.State != StateStale {
		t.Errorf("GetValue().State = %q, want %q", result.State, StateStale)
	}
	if e.CodeOf(err) != e.NoDataYet {
		t.Errorf("GetValue() error code = %d, want NoDataYet", e.CodeOf(err))
	}

	// The synthetic record must now exist in both locations
	want := Record{RetryAfter: testNow, LastLookup: testNow, LastValue: NeverObserved}
	got, perr := ParseRecord(store.Read())
	if perr != nil {
		t.Fatalf("store record unparseable after bootstrap: %v", perr)
	}
	if got != want {
		t.Errorf("store record = %+v, want %+v", got, want)
	}

	payload, ferr := os.ReadFile(filePath)
	if ferr != nil {
		t.Fatalf("fallback file missing after bootstrap: %v", ferr)
	}
	got, perr = ParseRecord(payload)
	if perr != nil {
		t.Fatalf("file record unparseable after bootstrap: %v", perr)
	}
	if got != want {
		t.Errorf("file record = %+v, want %+v", got, want)
	}
}

func TestMinimumIntervalRespected(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{value: 9999, observedAt: testNow}
	p, _ := newTestPolicy(t, store, fetcher, 3)

	seedStore(t, store, Record{
		RetryAfter: 0,
		LastLookup: testNow - 1,
		LastValue:  500,
	})

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}

	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times, want 0", fetcher.calls)
	}
	if result.State != StateFresh {
		t.Errorf("GetValue().State = %q, want %q", result.State, StateFresh)
	}
	if result.Value != 500 {
		t.Errorf("GetValue().Value = %d, want 500", result.Value)
	}
	if result.WaitSeconds != 2 {
		t.Errorf("GetValue().WaitSeconds = %d, want 2", result.WaitSeconds)
	}
}

func TestBackoffRespected(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{value: 9999, observedAt: testNow}
	p, _ := newTestPolicy(t, store, fetcher, 3)

	seedStore(t, store, Record{
		RetryAfter: testNow + 100,
		LastLookup: testNow - 600,
		LastValue:  500,
	})

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}

	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times during backoff, want 0", fetcher.calls)
	}
	if result.State != StateBackoff {
		t.Errorf("GetValue().State = %q, want %q", result.State, StateBackoff)
	}
	if result.Value != 500 {
		t.Errorf("GetValue().Value = %d, want unchanged 500", result.Value)
	}
	if result.WaitSeconds != 100 {
		t.Errorf("GetValue().WaitSeconds = %d, want 100", result.WaitSeconds)
	}
}

func TestSuccessfulLookupWritesBothCopies(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{value: 750, observedAt: testNow}
	p, filePath := newTestPolicy(t, store, fetcher, 3)

	seedStore(t, store, Record{
		RetryAfter: 0,
		LastLookup: testNow - 600,
		LastValue:  500,
	})

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}

	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
	if result.State != StateFresh {
		t.Errorf("GetValue().State = %q, want %q", result.State, StateFresh)
	}
	if result.Value != 750 {
		t.Errorf("GetValue().Value = %d, want 750", result.Value)
	}

	want := Record{RetryAfter: testNow, LastLookup: testNow, LastValue: 750}
	got, perr := ParseRecord(store.Read())
	if perr != nil || got != want {
		t.Errorf("store record = %+v (%v), want %+v", got, perr, want)
	}

	payload, ferr := os.ReadFile(filePath)
	if ferr != nil {
		t.Fatalf("fallback file not written: %v", ferr)
	}
	got, perr = ParseRecord(payload)
	if perr != nil || got != want {
		t.Errorf("file record = %+v (%v), want %+v", got, perr, want)
	}
}

func TestRateLimitUpdatesStoreButNotFile(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{
		err: e.RateLimited("stub", 30, "too many requests"),
	}
	p, filePath := newTestPolicy(t, store, fetcher, 3)

	prior := Record{RetryAfter: 0, LastLookup: testNow - 600, LastValue: 500}
	seedStore(t, store, prior)
	if err := os.WriteFile(filePath, prior.Encode(), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}

	if result.State != StateBackoff {
		t.Errorf("GetValue().State = %q, want %q", result.State, StateBackoff)
	}
	if result.Value != 500 {
		t.Errorf("GetValue().Value = %d, want unchanged 500", result.Value)
	}
	if result.WaitSeconds != 30 {
		t.Errorf("GetValue().WaitSeconds = %d, want 30", result.WaitSeconds)
	}
	if result.Warning == "" {
		t.Error("GetValue().Warning empty, want rate-limit warning")
	}

	// Shared copy advanced to the mandated cool-down
	want := Record{RetryAfter: testNow + 30, LastLookup: testNow, LastValue: 500}
	got, perr := ParseRecord(store.Read())
	if perr != nil || got != want {
		t.Errorf("store record = %+v (%v), want %+v", got, perr, want)
	}

	// File copy untouched
	payload, ferr := os.ReadFile(filePath)
	if ferr != nil {
		t.Fatalf("read fallback file: %v", ferr)
	}
	if !bytes.Equal(payload, prior.Encode()) {
		t.Errorf("file record = %q, want untouched %q", payload, prior.Encode())
	}
}

func TestCorruptStoreRecoversFromFile(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{value: 9999, observedAt: testNow}
	p, filePath := newTestPolicy(t, store, fetcher, 3)

	// Garbage bytes written directly into the shared store
	if err := store.Put([]byte("hello12345")); err != nil {
		t.Fatalf("seed garbage: %v", err)
	}

	fileRec := Record{RetryAfter: 0, LastLookup: testNow - 1, LastValue: 4242}
	if err := os.WriteFile(filePath, fileRec.Encode(), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}

	if result.Value != 4242 {
		t.Errorf("GetValue().Value = %d, want 4242 recovered from file", result.Value)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times, want 0", fetcher.calls)
	}

	// The shared copy was re-seeded from the durable one
	got, perr := ParseRecord(store.Read())
	if perr != nil || got != fileRec {
		t.Errorf("store record = %+v (%v), want re-seeded %+v", got, perr, fileRec)
	}
}

func TestRemoteFailureLeavesPersistedState(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{err: e.New("stub", e.RemoteTimeout, "deadline exceeded")}
	p, filePath := newTestPolicy(t, store, fetcher, 3)

	prior := Record{RetryAfter: 0, LastLookup: testNow - 600, LastValue: 500}
	seedStore(t, store, prior)
	if err := os.WriteFile(filePath, prior.Encode(), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}

	if result.State != StateStale {
		t.Errorf("GetValue().State = %q, want %q", result.State, StateStale)
	}
	if result.Value != 500 {
		t.Errorf("GetValue().Value = %d, want 500", result.Value)
	}
	if result.Warning == "" {
		t.Error("GetValue().Warning empty, want degraded warning")
	}

	// No backoff was written: a timeout carries no retry-after hint
	got, perr := ParseRecord(store.Read())
	if perr != nil || got != prior {
		t.Errorf("store record = %+v (%v), want untouched %+v", got, perr, prior)
	}
	payload, _ := os.ReadFile(filePath)
	if !bytes.Equal(payload, prior.Encode()) {
		t.Errorf("file record = %q, want untouched %q", payload, prior.Encode())
	}
}

func TestFileOnlyOperation(t *testing.T) {
	// Nil store: the policy degrades to the fallback file alone
	fetcher := &stubFetcher{value: 750, observedAt: testNow}
	p, filePath := newTestPolicy(t, nil, fetcher, 3)

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}
	if result.Value != 750 {
		t.Errorf("GetValue().Value = %d, want 750", result.Value)
	}

	want := Record{RetryAfter: testNow, LastLookup: testNow, LastValue: 750}
	payload, ferr := os.ReadFile(filePath)
	if ferr != nil {
		t.Fatalf("fallback file not written: %v", ferr)
	}
	got, perr := ParseRecord(payload)
	if perr != nil || got != want {
		t.Errorf("file record = %+v (%v), want %+v", got, perr, want)
	}
}

func TestSyntheticRecordIsNeverFresh(t *testing.T) {
	store := newMemStore(256)
	fetcher := &stubFetcher{value: 750, observedAt: testNow}
	p, _ := newTestPolicy(t, store, fetcher, 3)

	// A bootstrap-shaped record from moments ago must not suppress the
	// first real lookup
	seedStore(t, store, Record{
		RetryAfter: testNow - 1,
		LastLookup: testNow - 1,
		LastValue:  NeverObserved,
	})

	result, err := p.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
	if result.Value != 750 {
		t.Errorf("GetValue().Value = %d, want 750", result.Value)
	}
}
