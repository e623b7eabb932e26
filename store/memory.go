package store

import (
	"context"
	"fmt"
	"sync"

	"community-system/models"
)

// MemoryStore is an in-memory Store for tests and dev environments.
// RunInTransaction snapshots the whole state up front and restores it
// when fn fails, so cascades stay all-or-nothing like the real store.
type MemoryStore struct {
	mu sync.Mutex

	identities map[string]*models.AccessIdentity
	facilities map[string]*models.Facility
	events     map[string]*models.Event
	snapshots  map[string]*models.OccupancySnapshot
	accessLog  []*models.AccessEvent
	attendees  map[string]*models.Attendee
	sessions   map[string]*models.AttendanceSession

	seq  int
	inTx bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: map[string]*models.AccessIdentity{},
		facilities: map[string]*models.Facility{},
		events:     map[string]*models.Event{},
		snapshots:  map[string]*models.OccupancySnapshot{},
		attendees:  map[string]*models.Attendee{},
		sessions:   map[string]*models.AttendanceSession{},
	}
}

// Seed helpers for tests.

func (s *MemoryStore) AddFacility(f *models.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = s.nextID("fac")
	}
	s.facilities[f.ID] = f
}

func (s *MemoryStore) AddEvent(e *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.nextID("evt")
	}
	s.events[e.ID] = e
}

func (s *MemoryStore) AddIdentity(i *models.AccessIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == "" {
		i.ID = s.nextID("idt")
	}
	s.identities[i.ID] = i
}

func (s *MemoryStore) AddAttendee(a *models.Attendee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.nextID("att")
	}
	s.attendees[a.ID] = a
}

// AccessLog returns a copy of all recorded events. Test-only helper.
func (s *MemoryStore) AccessLog() []*models.AccessEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AccessEvent, len(s.accessLog))
	copy(out, s.accessLog)
	return out
}

func (s *MemoryStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%04d", prefix, s.seq)
}

func (s *MemoryStore) lock() func() {
	// Nested calls made through the tx view already hold the lock.
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) FindIdentityByCard(_ context.Context, cardID string) (*models.AccessIdentity, error) {
	defer s.lock()()
	for _, i := range s.identities {
		if i.CardID != "" && i.CardID == cardID {
			cp := *i
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindIdentityByUsername(_ context.Context, username string) (*models.AccessIdentity, error) {
	defer s.lock()()
	for _, i := range s.identities {
		if i.Username == username {
			cp := *i
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveIdentity(_ context.Context, identity *models.AccessIdentity) error {
	defer s.lock()()
	if identity.ID == "" {
		identity.ID = s.nextID("idt")
	}
	cp := *identity
	s.identities[identity.ID] = &cp
	return nil
}

func (s *MemoryStore) FindFacility(_ context.Context, id string) (*models.Facility, error) {
	defer s.lock()()
	f, ok := s.facilities[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) FindEventBySlug(_ context.Context, slug string) (*models.Event, error) {
	defer s.lock()()
	for _, e := range s.events {
		if e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetSnapshot(_ context.Context, facilityID string) (*models.OccupancySnapshot, error) {
	defer s.lock()()
	snap, ok := s.snapshots[facilityID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *snap
	cp.ActiveSessions = append([]models.ActiveSession(nil), snap.ActiveSessions...)
	return &cp, nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snap *models.OccupancySnapshot) error {
	defer s.lock()()
	if snap.ID == "" {
		snap.ID = s.nextID("occ")
	}
	cp := *snap
	cp.ActiveSessions = append([]models.ActiveSession(nil), snap.ActiveSessions...)
	s.snapshots[snap.FacilityID] = &cp
	return nil
}

func (s *MemoryStore) AppendAccessEvent(_ context.Context, event *models.AccessEvent) error {
	defer s.lock()()
	if event.ID == "" {
		event.ID = s.nextID("aev")
	}
	cp := *event
	s.accessLog = append(s.accessLog, &cp)
	return nil
}

func (s *MemoryStore) ListAccessEvents(_ context.Context, filter models.AccessEventFilter) ([]*models.AccessEvent, error) {
	defer s.lock()()
	var out []*models.AccessEvent
	for _, ev := range s.accessLog {
		if filter.TargetType != "" && ev.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != "" && ev.TargetID != filter.TargetID {
			continue
		}
		if filter.IdentityID != "" && ev.IdentityID != filter.IdentityID {
			continue
		}
		cp := *ev
		out = append(out, &cp)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) FindAttendee(_ context.Context, eventID, identityID string) (*models.Attendee, error) {
	defer s.lock()()
	for _, a := range s.attendees {
		if a.EventID == eventID && a.IdentityID == identityID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveAttendee(_ context.Context, attendee *models.Attendee) error {
	defer s.lock()()
	if attendee.ID == "" {
		attendee.ID = s.nextID("att")
	}
	cp := *attendee
	s.attendees[attendee.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteAttendee(_ context.Context, attendeeID string) error {
	defer s.lock()()
	if _, ok := s.attendees[attendeeID]; !ok {
		return ErrNotFound
	}
	delete(s.attendees, attendeeID)
	return nil
}

func (s *MemoryStore) FindOpenSession(_ context.Context, attendeeID string) (*models.AttendanceSession, error) {
	defer s.lock()()
	for _, sess := range s.sessions {
		if sess.AttendeeID == attendeeID && sess.ExitedAt.IsZero() {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListSessions(_ context.Context, attendeeID string) ([]*models.AttendanceSession, error) {
	defer s.lock()()
	var out []*models.AttendanceSession
	for _, sess := range s.sessions {
		if sess.AttendeeID == attendeeID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveSession(_ context.Context, session *models.AttendanceSession) error {
	defer s.lock()()
	if session.ID == "" {
		session.ID = s.nextID("ses")
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteSessions(_ context.Context, attendeeID string) error {
	defer s.lock()()
	for id, sess := range s.sessions {
		if sess.AttendeeID == attendeeID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *MemoryStore) SumClosedSessionSeconds(_ context.Context, attendeeID string) (int64, error) {
	defer s.lock()()
	var total int64
	for _, sess := range s.sessions {
		if sess.AttendeeID == attendeeID && !sess.ExitedAt.IsZero() {
			total += sess.DurationSeconds
		}
	}
	return total, nil
}

func (s *MemoryStore) RunInTransaction(_ context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.copyState()
	s.inTx = true
	err := fn(s)
	s.inTx = false
	if err != nil {
		s.restoreState(backup)
		return err
	}
	return nil
}

type memoryState struct {
	identities map[string]*models.AccessIdentity
	facilities map[string]*models.Facility
	events     map[string]*models.Event
	snapshots  map[string]*models.OccupancySnapshot
	accessLog  []*models.AccessEvent
	attendees  map[string]*models.Attendee
	sessions   map[string]*models.AttendanceSession
	seq        int
}

func (s *MemoryStore) copyState() memoryState {
	st := memoryState{
		identities: make(map[string]*models.AccessIdentity, len(s.identities)),
		facilities: make(map[string]*models.Facility, len(s.facilities)),
		events:     make(map[string]*models.Event, len(s.events)),
		snapshots:  make(map[string]*models.OccupancySnapshot, len(s.snapshots)),
		accessLog:  append([]*models.AccessEvent(nil), s.accessLog...),
		attendees:  make(map[string]*models.Attendee, len(s.attendees)),
		sessions:   make(map[string]*models.AttendanceSession, len(s.sessions)),
		seq:        s.seq,
	}
	for k, v := range s.identities {
		st.identities[k] = v
	}
	for k, v := range s.facilities {
		st.facilities[k] = v
	}
	for k, v := range s.events {
		st.events[k] = v
	}
	for k, v := range s.snapshots {
		st.snapshots[k] = v
	}
	for k, v := range s.attendees {
		st.attendees[k] = v
	}
	for k, v := range s.sessions {
		st.sessions[k] = v
	}
	return st
}

func (s *MemoryStore) restoreState(st memoryState) {
	s.identities = st.identities
	s.facilities = st.facilities
	s.events = st.events
	s.snapshots = st.snapshots
	s.accessLog = st.accessLog
	s.attendees = st.attendees
	s.sessions = st.sessions
	s.seq = st.seq
}
