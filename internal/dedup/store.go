// Package dedup decides whether a canonical event is new enough to announce.
package dedup

import (
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
)

// recentBulletinLimit bounds how many announced bulletin ids are remembered.
const recentBulletinLimit = 32

// Store keeps the last announced state per event class. Each class has its
// own lock so a slow admission in one class never blocks another. The zero
// value is not usable; call NewStore.
type Store struct {
	eewMu   sync.Mutex
	lastEEW string

	bulletinMu       sync.Mutex
	lastBulletin     string
	lastBulletinAt   time.Time
	recentBulletins  []string // ring of announced ids, oldest overwritten first
	recentBulletinAt int
	seenBulletins    map[string]struct{}

	tsunamiMu   sync.Mutex
	seenTsunami map[string]struct{}

	observationMu   sync.Mutex
	lastObservation *domain.TsunamiObservation

	longPeriodMu   sync.Mutex
	lastLongPeriod *domain.LongPeriodMotion
}

// NewStore returns an empty store. State is never persisted.
func NewStore() *Store {
	return &Store{
		seenTsunami:   make(map[string]struct{}),
		seenBulletins: make(map[string]struct{}),
	}
}

// AdmitEEW reports whether text differs from the last admitted EEW text and
// records it if so.
func (s *Store) AdmitEEW(text string) bool {
	s.eewMu.Lock()
	defer s.eewMu.Unlock()

	if text == "" || text == s.lastEEW {
		return false
	}
	s.lastEEW = text
	return true
}

// AdmitBulletin reports whether the bulletin is new and records it if so. An
// id is new when it is not among the recently announced ones and its issue
// time is not older than the last admitted bulletin. A zero issuedAt skips the
// time check. An empty id cannot be tracked and is never admitted.
func (s *Store) AdmitBulletin(id string, issuedAt time.Time) bool {
	s.bulletinMu.Lock()
	defer s.bulletinMu.Unlock()

	if id == "" || id == s.lastBulletin {
		return false
	}
	if _, ok := s.seenBulletins[id]; ok {
		return false
	}
	if !issuedAt.IsZero() && issuedAt.Before(s.lastBulletinAt) {
		return false
	}

	s.lastBulletin = id
	if issuedAt.After(s.lastBulletinAt) {
		s.lastBulletinAt = issuedAt
	}
	s.rememberBulletin(id)
	return true
}

func (s *Store) rememberBulletin(id string) {
	if len(s.recentBulletins) < recentBulletinLimit {
		s.recentBulletins = append(s.recentBulletins, id)
	} else {
		delete(s.seenBulletins, s.recentBulletins[s.recentBulletinAt])
		s.recentBulletins[s.recentBulletinAt] = id
		s.recentBulletinAt = (s.recentBulletinAt + 1) % recentBulletinLimit
	}
	s.seenBulletins[id] = struct{}{}
}

// AdmitLatestBulletin evaluates a most-recent-first bulletin list. Only the
// head is considered, so re-reading the same list never re-admits an older
// entry.
func (s *Store) AdmitLatestBulletin(bulletins []domain.EarthquakeBulletin) (domain.EarthquakeBulletin, bool) {
	if len(bulletins) == 0 {
		return domain.EarthquakeBulletin{}, false
	}
	head := bulletins[0]
	return head, s.AdmitBulletin(head.ID, head.IssuedAt)
}

// AdmitTsunamiItem reports whether the advisory item id has never been seen.
// The seen set only grows.
func (s *Store) AdmitTsunamiItem(id string) bool {
	s.tsunamiMu.Lock()
	defer s.tsunamiMu.Unlock()

	if id == "" {
		return false
	}
	if _, ok := s.seenTsunami[id]; ok {
		return false
	}
	s.seenTsunami[id] = struct{}{}
	return true
}

// AdmitTsunamiObservation reports whether the snapshot differs from the last
// admitted one.
func (s *Store) AdmitTsunamiObservation(o domain.TsunamiObservation) bool {
	s.observationMu.Lock()
	defer s.observationMu.Unlock()

	if s.lastObservation != nil && s.lastObservation.Equal(o) {
		return false
	}
	snapshot := domain.TsunamiObservation{Stations: slices.Clone(o.Stations)}
	s.lastObservation = &snapshot
	return true
}

// AdmitLongPeriod reports whether the area -> kinds mapping differs from the
// last admitted one.
func (s *Store) AdmitLongPeriod(m domain.LongPeriodMotion) bool {
	s.longPeriodMu.Lock()
	defer s.longPeriodMu.Unlock()

	if s.lastLongPeriod != nil && s.lastLongPeriod.Equal(m) {
		return false
	}
	snapshot := cloneMotion(m)
	s.lastLongPeriod = &snapshot
	return true
}

func cloneMotion(m domain.LongPeriodMotion) domain.LongPeriodMotion {
	areas := make([]domain.AreaMotion, len(m.Areas))
	for i, a := range m.Areas {
		areas[i] = domain.AreaMotion{Area: a.Area, Kinds: slices.Clone(a.Kinds)}
	}
	return domain.LongPeriodMotion{Areas: areas}
}

// State is a point-in-time copy of the store, for diagnostics.
type State struct {
	LastEEWMessage         string                     `json:"last_eew_message"`
	LastEarthquakeID       string                     `json:"last_earthquake_id"`
	SeenTsunamiIDs         []string                   `json:"seen_tsunami_ids"`
	LastTsunamiObservation *domain.TsunamiObservation `json:"last_tsunami_observation,omitempty"`
	LastLongPeriod         *domain.LongPeriodMotion   `json:"last_long_period,omitempty"`
}

// State returns a copy of the current state. Callers may modify it freely.
func (s *Store) State() State {
	var st State

	s.eewMu.Lock()
	st.LastEEWMessage = s.lastEEW
	s.eewMu.Unlock()

	s.bulletinMu.Lock()
	st.LastEarthquakeID = s.lastBulletin
	s.bulletinMu.Unlock()

	s.tsunamiMu.Lock()
	st.SeenTsunamiIDs = make([]string, 0, len(s.seenTsunami))
	for id := range s.seenTsunami {
		st.SeenTsunamiIDs = append(st.SeenTsunamiIDs, id)
	}
	s.tsunamiMu.Unlock()
	slices.Sort(st.SeenTsunamiIDs)

	s.observationMu.Lock()
	if s.lastObservation != nil {
		o := domain.TsunamiObservation{Stations: slices.Clone(s.lastObservation.Stations)}
		st.LastTsunamiObservation = &o
	}
	s.observationMu.Unlock()

	s.longPeriodMu.Lock()
	if s.lastLongPeriod != nil {
		m := cloneMotion(*s.lastLongPeriod)
		st.LastLongPeriod = &m
	}
	s.longPeriodMu.Unlock()

	return st
}
