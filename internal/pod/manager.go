package pod

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/wrbnet/wrbhost/internal/infrastructure/logging"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// syncRetryLimit bounds stale-version retries during a slot sync.
const syncRetryLimit = 5

// FetchRecord is the authoritative version and signer captured by the most
// recent fetch of a slot within a session.
type FetchRecord struct {
	Version uint64
	Signer  []byte
}

// Session is one open pod handle. Sessions persist for the life of the page
// process; there is no close.
type Session struct {
	ID       uint64
	Location Location
	Owned    bool
	App      string

	sb      *superblock
	fetched map[uint32]FetchRecord // app slot id -> last fetch
	staged  map[uint32]*slotSlices // physical slot id -> staged slices
}

// Manager owns every pod session for a page process. All staged state is
// per-session; two sessions on the same location are independent staging
// areas and the backend arbitrates concurrent writers.
type Manager struct {
	backend  Backend
	identity string
	log      *logging.Logger

	// onConflict fires once per stale-version rejection during a sync.
	onConflict func()

	mu         sync.Mutex
	sessions   map[uint64]*Session
	byLocation map[string]uint64
	nextID     uint64
}

// NewManager creates a session manager over the given storage backend.
// identity is the page process's own identity, used for owned-pod detection.
func NewManager(backend Backend, identity string, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	return &Manager{
		backend:    backend,
		identity:   identity,
		log:        log,
		sessions:   make(map[uint64]*Session),
		byLocation: make(map[string]uint64),
		nextID:     1,
	}
}

// SetConflictHook registers a callback fired on every stale-version
// rejection during a sync. Used for conflict counters.
func (m *Manager) SetConflictHook(fn func()) {
	m.onConflict = fn
}

// StagedSlices reports the total slice count staged across every session.
func (m *Manager) StagedSlices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, s := range m.sessions {
		for _, ss := range s.staged {
			total += len(ss.slices)
		}
	}
	return total
}

// Open opens a session against a pod location on behalf of app. Reopening a
// location returns the existing session. All failures surface as
// OpenFailure; no session is recorded on failure.
func (m *Manager) Open(ctx context.Context, loc Location, app string) (uint64, *wrberr.Error) {
	if err := loc.Validate(); err != nil {
		return 0, wrberr.New(wrberr.CodeOpenFailure, "invalid pod location: %s", err)
	}

	m.mu.Lock()
	if sid, ok := m.byLocation[loc.String()]; ok {
		m.mu.Unlock()
		m.log.Debug("pod already open", zap.String("location", loc.String()), zap.Uint64("session", sid))
		return sid, nil
	}
	m.mu.Unlock()

	owner, err := m.backend.Owner(ctx, loc.BackendRef)
	if err != nil {
		return 0, wrberr.Wrap(wrberr.CodeOpenFailure, err)
	}
	owned := owner != "" && owner == m.identity

	sb, err := m.downloadSuperblock(ctx, loc.BackendRef)
	if err != nil {
		return 0, wrberr.Wrap(wrberr.CodeOpenFailure, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// re-check: a concurrent open may have won
	if sid, ok := m.byLocation[loc.String()]; ok {
		return sid, nil
	}
	sid := m.nextID
	m.nextID++
	m.sessions[sid] = &Session{
		ID:       sid,
		Location: loc,
		Owned:    owned,
		App:      app,
		sb:       sb,
		fetched:  make(map[uint32]FetchRecord),
		staged:   make(map[uint32]*slotSlices),
	}
	m.byLocation[loc.String()] = sid
	m.log.Info("opened pod session",
		zap.Uint64("session", sid),
		zap.String("location", loc.String()),
		zap.Bool("owned", owned))
	return sid, nil
}

func (m *Manager) downloadSuperblock(ctx context.Context, ref string) (*superblock, error) {
	data, err := m.backend.GetSlot(ctx, ref, SuperblockSlot)
	if errors.Is(err, ErrNoSuchSlot) {
		// pod not formatted yet
		return newSuperblock(), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSuperblock(data)
}

func (m *Manager) uploadSuperblock(ctx context.Context, ref string, sb *superblock) error {
	data, err := sb.encode()
	if err != nil {
		return err
	}
	version := uint64(1)
	if mds, err := m.backend.ListSlots(ctx, ref); err == nil {
		for _, md := range mds {
			if md.Slot == SuperblockSlot {
				version = md.Version + 1
			}
		}
	}
	for attempt := 0; attempt < syncRetryLimit; attempt++ {
		res, err := m.backend.PutSlot(ctx, ref, Chunk{
			Slot:    SuperblockSlot,
			Version: version,
			Data:    data,
		})
		if err != nil {
			return err
		}
		if res.Accepted {
			return nil
		}
		if res.Latest == nil {
			return errors.New(res.Reason)
		}
		if m.onConflict != nil {
			m.onConflict()
		}
		version = res.Latest.Version + 1
	}
	return errors.New("superblock version contention")
}

// resolveSlot maps a session-visible slot id to a physical slot. An app
// with an allocation table addresses its logical slots through it; before
// any allocation exists the pod is addressed directly, skipping only the
// superblock slot.
func (s *Session) resolveSlot(slot uint32) (uint32, bool) {
	if _, ok := s.sb.Apps[s.App]; ok {
		return s.sb.physicalSlot(s.App, slot)
	}
	phys := slot + 1
	if phys >= MaxSlots {
		return 0, false
	}
	return phys, true
}

func (m *Manager) session(sid uint64) (*Session, *wrberr.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sid]
	if !ok {
		return nil, wrberr.New(wrberr.CodePodNotOpen, "no such pod session %d", sid)
	}
	return s, nil
}

// Get returns session bookkeeping for introspection.
func (m *Manager) Get(sid uint64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sid]
	if !ok {
		return Session{}, false
	}
	return Session{ID: s.ID, Location: s.Location, Owned: s.Owned, App: s.App}, true
}

// Sessions lists open session ids.
func (m *Manager) Sessions() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint64, 0, len(m.sessions))
	for sid := range m.sessions {
		out = append(out, sid)
	}
	return out
}

// NumSlots reports the slot count allocated to app within the session's pod.
func (m *Manager) NumSlots(sid uint64, app string) (uint32, *wrberr.Error) {
	s, werr := m.session(sid)
	if werr != nil {
		return 0, werr
	}
	return s.sb.numSlots(app), nil
}

// AllocSlots reserves count more slots for the session's app. Ok(false)
// means the pod declined (no room), a valid outcome rather than an error. Backend
// failures surface as SlotAllocFailure and leave no partial allocation.
func (m *Manager) AllocSlots(ctx context.Context, sid uint64, count uint32) (bool, *wrberr.Error) {
	s, werr := m.session(sid)
	if werr != nil {
		return false, werr
	}

	// refresh the table first so concurrent editors are visible
	sb, err := m.downloadSuperblock(ctx, s.Location.BackendRef)
	if err != nil {
		return false, wrberr.Wrap(wrberr.CodeSlotAllocFailure, err)
	}
	if !sb.allocate(s.App, nil, count) {
		s.sb = sb
		return false, nil
	}
	if err := m.uploadSuperblock(ctx, s.Location.BackendRef, sb); err != nil {
		return false, wrberr.Wrap(wrberr.CodeSlotAllocFailure, err)
	}
	s.sb = sb
	m.log.Debug("allocated pod slots",
		zap.Uint64("session", sid), zap.String("app", s.App), zap.Uint32("count", count))
	return true, nil
}

// FetchSlot downloads the authoritative version and signer for one app slot
// and makes its slices addressable, overwriting any prior fetch record and
// staged bundle for that slot in this session.
func (m *Manager) FetchSlot(ctx context.Context, sid uint64, slot uint32) (FetchRecord, *wrberr.Error) {
	s, werr := m.session(sid)
	if werr != nil {
		return FetchRecord{}, werr
	}
	phys, ok := s.resolveSlot(slot)
	if !ok {
		return FetchRecord{}, wrberr.New(wrberr.CodeFetchSlotFailure,
			"slot %d is not allocated to %s", slot, s.App)
	}

	var rec FetchRecord
	mds, err := m.backend.ListSlots(ctx, s.Location.BackendRef)
	if err != nil {
		return FetchRecord{}, wrberr.Wrap(wrberr.CodeFetchSlotFailure, err)
	}
	for _, md := range mds {
		if md.Slot == phys {
			rec = FetchRecord{Version: md.Version, Signer: md.Signer}
		}
	}

	data, err := m.backend.GetSlot(ctx, s.Location.BackendRef, phys)
	switch {
	case errors.Is(err, ErrNoSuchSlot):
		// never written: version 0, no signer, empty staging area
		rec = FetchRecord{}
		s.staged[phys] = newSlotSlices()
	case err != nil:
		return FetchRecord{}, wrberr.Wrap(wrberr.CodeFetchSlotFailure, err)
	default:
		ss, derr := decodeSlotSlices(data)
		if derr != nil {
			return FetchRecord{}, wrberr.Wrap(wrberr.CodeFetchSlotFailure, derr)
		}
		s.staged[phys] = ss
	}

	s.fetched[slot] = rec
	return rec, nil
}

// GetSlice returns a staged slice. The slot must have been fetched in this
// session (NoSlot otherwise); a fetched slot without that slice is NoSlice.
func (m *Manager) GetSlice(sid uint64, slot uint32, slice uint64) ([]byte, *wrberr.Error) {
	s, werr := m.session(sid)
	if werr != nil {
		return nil, werr
	}
	if _, ok := s.fetched[slot]; !ok {
		return nil, wrberr.New(wrberr.CodeNoSlot, "slot %d not fetched in session %d", slot, sid)
	}
	phys, ok := s.resolveSlot(slot)
	if !ok {
		return nil, wrberr.New(wrberr.CodeNoSlot, "slot %d is not allocated to %s", slot, s.App)
	}
	ss, ok := s.staged[phys]
	if !ok {
		return nil, wrberr.New(wrberr.CodeNoSlice, "slot %d has no staged data", slot)
	}
	data, ok := ss.get(slice)
	if !ok {
		return nil, wrberr.New(wrberr.CodeNoSlice, "no slice %d in slot %d", slice, slot)
	}
	return data, nil
}

// PutSlice stages bytes locally and marks the slice dirty. It does not
// contact the backend; normal use fetches the slot first so concurrent
// editors are detected at sync time. Returns false when the slice would not
// fit or the slot is not allocated to the app.
func (m *Manager) PutSlice(sid uint64, slot uint32, slice uint64, data []byte) (bool, *wrberr.Error) {
	if len(data) > MaxChunkSize {
		return false, wrberr.New(wrberr.CodePutSliceFailure,
			"slice of %d bytes exceeds maximum %d", len(data), MaxChunkSize)
	}
	s, werr := m.session(sid)
	if werr != nil {
		return false, werr
	}
	phys, ok := s.resolveSlot(slot)
	if !ok {
		return false, nil
	}
	ss, ok := s.staged[phys]
	if !ok {
		ss = newSlotSlices()
		s.staged[phys] = ss
	}
	return ss.put(slice, data), nil
}

// SyncSlot commits every dirty slice of the slot to the backend. The slot
// must have been fetched in this session. On success dirty flags clear and
// the fetch record advances to the committed version; on failure staged
// edits stay intact for retry.
func (m *Manager) SyncSlot(ctx context.Context, sid uint64, slot uint32) (bool, *wrberr.Error) {
	s, werr := m.session(sid)
	if werr != nil {
		return false, werr
	}
	rec, ok := s.fetched[slot]
	if !ok {
		return false, wrberr.New(wrberr.CodeNoSlot, "slot %d not fetched in session %d", slot, sid)
	}
	phys, ok := s.resolveSlot(slot)
	if !ok {
		return false, wrberr.New(wrberr.CodeNoSlot, "slot %d is not allocated to %s", slot, s.App)
	}
	ss, ok := s.staged[phys]
	if !ok || !ss.dirty {
		// nothing to commit
		return true, nil
	}

	data, err := ss.encode()
	if err != nil {
		return false, wrberr.Wrap(wrberr.CodeSyncSlotFailure, err)
	}

	version := rec.Version + 1
	for attempt := 0; attempt < syncRetryLimit; attempt++ {
		res, err := m.backend.PutSlot(ctx, s.Location.BackendRef, Chunk{
			Slot:    phys,
			Version: version,
			Data:    data,
		})
		if err != nil {
			return false, wrberr.Wrap(wrberr.CodeSyncSlotFailure, err)
		}
		if res.Accepted {
			ss.dirty = false
			rec.Version = version
			s.fetched[slot] = rec
			m.log.Debug("synced pod slot",
				zap.Uint64("session", sid), zap.Uint32("slot", slot), zap.Uint64("version", version))
			return true, nil
		}
		if res.Latest == nil {
			return false, wrberr.New(wrberr.CodeSyncSlotFailure, "slot %d rejected: %s", slot, res.Reason)
		}
		if m.onConflict != nil {
			m.onConflict()
		}
		version = res.Latest.Version + 1
	}
	return false, wrberr.New(wrberr.CodeSyncSlotFailure, "slot %d: version contention", slot)
}
