package dedup_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/quake-alert/internal/dedup"
	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AdmitEEW(t *testing.T) {
	s := dedup.NewStore()

	assert.True(t, s.AdmitEEW("第1報"))
	assert.False(t, s.AdmitEEW("第1報"), "same text is suppressed")
	assert.True(t, s.AdmitEEW("第2報"))
	assert.True(t, s.AdmitEEW("第1報"), "only the last text is remembered")
	assert.False(t, s.AdmitEEW(""))
}

func TestStore_EEWRoundTrip(t *testing.T) {
	en, err := domain.PhrasebookFor("en")
	require.NoError(t, err)
	c := domain.NewComposer(en)
	s := dedup.NewStore()

	depth, mag := 0.0, 6.1
	serial := 1
	u := domain.EEWUpdate{Serial: &serial, Hypocenter: "Tokyo Bay", DepthKm: &depth, Magnitude: &mag, MaxIntensity: "4"}

	first := c.ComposeEEW(u)
	require.True(t, s.AdmitEEW(first.Text))
	assert.Contains(t, first.Text, "Tokyo Bay")
	assert.Contains(t, first.Text, "6.1")

	second := c.ComposeEEW(u)
	assert.False(t, s.AdmitEEW(second.Text), "an identical update is suppressed")
}

func TestStore_AdmitBulletin(t *testing.T) {
	s := dedup.NewStore()

	assert.True(t, s.AdmitBulletin("a", time.Time{}))
	assert.False(t, s.AdmitBulletin("a", time.Time{}))
	assert.True(t, s.AdmitBulletin("b", time.Time{}))
	assert.False(t, s.AdmitBulletin("a", time.Time{}), "an announced id is not announced again")
	assert.False(t, s.AdmitBulletin("", time.Time{}))
	assert.Equal(t, "b", s.State().LastEarthquakeID)
}

func TestStore_AdmitBulletin_IssueTime(t *testing.T) {
	s := dedup.NewStore()
	at := time.Date(2024, 1, 1, 7, 13, 0, 0, time.UTC)

	require.True(t, s.AdmitBulletin("new", at))
	assert.False(t, s.AdmitBulletin("stale", at.Add(-time.Hour)), "older than the last admitted bulletin")
	assert.True(t, s.AdmitBulletin("same-time", at))
	assert.True(t, s.AdmitBulletin("undated", time.Time{}))
	assert.True(t, s.AdmitBulletin("newer", at.Add(time.Minute)))
	assert.Equal(t, "newer", s.State().LastEarthquakeID)
}

func TestStore_AdmitBulletin_RecentIDsAreBounded(t *testing.T) {
	s := dedup.NewStore()

	for i := range 40 {
		require.True(t, s.AdmitBulletin(fmt.Sprintf("b%d", i), time.Time{}))
	}
	assert.False(t, s.AdmitBulletin("b39", time.Time{}))
	assert.False(t, s.AdmitBulletin("b20", time.Time{}))
	assert.True(t, s.AdmitBulletin("b0", time.Time{}), "the oldest ids are forgotten")
}

func TestStore_AdmitLatestBulletin(t *testing.T) {
	s := dedup.NewStore()
	list := []domain.EarthquakeBulletin{{ID: "new"}, {ID: "old"}}

	head, ok := s.AdmitLatestBulletin(list)
	assert.True(t, ok)
	assert.Equal(t, "new", head.ID)

	// Polling the same list again admits nothing, including the older entry.
	_, ok = s.AdmitLatestBulletin(list)
	assert.False(t, ok)

	_, ok = s.AdmitLatestBulletin(nil)
	assert.False(t, ok)

	head, ok = s.AdmitLatestBulletin([]domain.EarthquakeBulletin{{ID: "newer"}, {ID: "new"}})
	assert.True(t, ok)
	assert.Equal(t, "newer", head.ID)
}

func TestStore_AdmitTsunamiItem(t *testing.T) {
	s := dedup.NewStore()

	assert.True(t, s.AdmitTsunamiItem("t1"))
	assert.True(t, s.AdmitTsunamiItem("t2"))
	assert.False(t, s.AdmitTsunamiItem("t1"), "seen ids are never forgotten")
	assert.False(t, s.AdmitTsunamiItem(""))
	assert.Equal(t, []string{"t1", "t2"}, s.State().SeenTsunamiIDs)
}

func TestStore_AdmitTsunamiObservation(t *testing.T) {
	s := dedup.NewStore()
	at := time.Date(2024, 1, 1, 7, 21, 0, 0, time.UTC)
	snap := domain.TsunamiObservation{Stations: []domain.StationObservation{
		{Station: "輪島港", ObservedAt: at, Height: "1.2m"},
	}}

	assert.True(t, s.AdmitTsunamiObservation(snap))
	assert.False(t, s.AdmitTsunamiObservation(snap))

	// Mutating the caller's slice must not change the stored snapshot.
	snap.Stations[0].Height = "3.0m"
	assert.True(t, s.AdmitTsunamiObservation(snap))
	assert.False(t, s.AdmitTsunamiObservation(snap))
}

func TestStore_AdmitLongPeriod(t *testing.T) {
	s := dedup.NewStore()
	m := domain.LongPeriodMotion{Areas: []domain.AreaMotion{
		{Area: "A", Kinds: []string{"階級1"}},
		{Area: "B", Kinds: []string{"階級2"}},
	}}
	reordered := domain.LongPeriodMotion{Areas: []domain.AreaMotion{m.Areas[1], m.Areas[0]}}

	assert.True(t, s.AdmitLongPeriod(m))
	assert.False(t, s.AdmitLongPeriod(reordered), "area order does not matter")

	changed := domain.LongPeriodMotion{Areas: []domain.AreaMotion{
		{Area: "A", Kinds: []string{"階級3"}},
		{Area: "B", Kinds: []string{"階級2"}},
	}}
	assert.True(t, s.AdmitLongPeriod(changed))
}

func TestStore_StateIsACopy(t *testing.T) {
	s := dedup.NewStore()
	s.AdmitEEW("x")
	s.AdmitTsunamiItem("t1")
	s.AdmitLongPeriod(domain.LongPeriodMotion{Areas: []domain.AreaMotion{{Area: "A", Kinds: []string{"1"}}}})

	st := s.State()
	st.SeenTsunamiIDs[0] = "mutated"
	st.LastLongPeriod.Areas[0].Kinds[0] = "mutated"

	want := dedup.State{
		LastEEWMessage: "x",
		SeenTsunamiIDs: []string{"t1"},
		LastLongPeriod: &domain.LongPeriodMotion{Areas: []domain.AreaMotion{{Area: "A", Kinds: []string{"1"}}}},
	}
	if diff := cmp.Diff(want, s.State()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ConcurrentAdmission(t *testing.T) {
	s := dedup.NewStore()
	const workers = 16
	const ids = 50

	var admitted atomic.Int64
	var eewAdmitted atomic.Int64
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ids {
				if s.AdmitTsunamiItem(fmt.Sprintf("t%d", i)) {
					admitted.Add(1)
				}
				s.AdmitBulletin(fmt.Sprintf("b%d", w), time.Time{})
				_ = s.State()
			}
			if s.AdmitEEW("same") {
				eewAdmitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(ids), admitted.Load(), "each tsunami id is admitted exactly once")
	assert.Equal(t, int64(1), eewAdmitted.Load())
	assert.Len(t, s.State().SeenTsunamiIDs, ids)
}
