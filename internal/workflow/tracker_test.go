package workflow

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory SlotStore for tests.
type memStore struct {
	mu    sync.Mutex
	slots map[string][]byte
	saves int
	fail  error
}

func newMemStore() *memStore {
	return &memStore{slots: map[string][]byte{}}
}

func (m *memStore) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.slots[key]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return payload, nil
}

func (m *memStore) Save(key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.slots[key] = payload
	m.saves++
	return nil
}

func (m *memStore) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

func (m *memStore) saved(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.slots[key]
	return payload, ok
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func newTestTracker(store SlotStore) *Tracker {
	// Zero debounce keeps persistence synchronous in tests.
	return NewTracker(store, "workflow", WithPersistDebounce(0))
}

func TestTracker_StateReturnsCopy(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.UpdateReportData(ReportPatch{Titles: []TitleItem{{Index: 0, Title: "a"}}})

	got := tr.State()
	got.ReportData.Titles[0].Title = "mutated"

	assert.Equal(t, "a", tr.State().ReportData.Titles[0].Title)
}

func TestTracker_TrivialStateNeverPersisted(t *testing.T) {
	store := newMemStore()
	tr := newTestTracker(store)

	tr.SetLoading(map[LoadingFlag]bool{LoadingExporting: true})
	tr.SetError(&StateError{Code: "x", Message: "y"})
	tr.SetCurrentStep(StepForm)

	assert.Equal(t, 0, store.saveCount(), "default-shaped state should not be written")
}

func TestTracker_NonTrivialStatePersisted(t *testing.T) {
	store := newMemStore()
	tr := newTestTracker(store)

	reportID := "r-1"
	tr.UpdateReportData(ReportPatch{ReportID: &reportID})

	payload, ok := store.saved("workflow")
	require.True(t, ok)
	assert.Contains(t, string(payload), `"reportId":"r-1"`)
}

func TestTracker_DebouncedPersistWritesOnlyLatest(t *testing.T) {
	store := newMemStore()
	tr := NewTracker(store, "workflow", WithPersistDebounce(20*time.Millisecond))

	reportID := "r-1"
	tr.UpdateReportData(ReportPatch{ReportID: &reportID})
	tr.SetCurrentStep(StepTitles)
	tr.CompleteStep(StepForm)

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond,
		"rapid transitions coalesce into one write")
	payload, _ := store.saved("workflow")
	assert.Contains(t, string(payload), `"currentStep":2`)
}

func TestTracker_ResetClearsSlotAndCancelsPending(t *testing.T) {
	store := newMemStore()
	tr := NewTracker(store, "workflow", WithPersistDebounce(50*time.Millisecond))

	reportID := "r-1"
	tr.UpdateReportData(ReportPatch{ReportID: &reportID})
	tr.ResetWorkflow()

	time.Sleep(100 * time.Millisecond)
	_, ok := store.saved("workflow")
	assert.False(t, ok, "reset clears the slot and the pending write never lands")
	assert.Equal(t, NewState(), tr.State())
}

func TestTracker_ResetThenHydrateYieldsDefaults(t *testing.T) {
	store := newMemStore()
	tr := newTestTracker(store)
	reportID := "r-1"
	tr.UpdateReportData(ReportPatch{ReportID: &reportID})
	tr.ResetWorkflow()

	fresh := newTestTracker(store)
	fresh.Hydrate()

	assert.Equal(t, NewState(), fresh.State())
}

func TestTracker_HydrateMergesPersistedState(t *testing.T) {
	store := newMemStore()
	first := newTestTracker(store)
	first.LoadExistingReport(
		ReportData{ReportID: "r-9", Status: StatusTitlesGenerated},
		StepTitles,
		[]Step{StepForm},
	)
	first.CompleteReport("r-8", "Acme", "Initech")
	first.Flush()

	second := newTestTracker(store)
	second.SetLoading(map[LoadingFlag]bool{LoadingGeneratingOutcomes: true})
	second.Hydrate()

	got := second.State()
	assert.Equal(t, StepTitles, got.CurrentStep)
	assert.Equal(t, []Step{StepForm}, got.CompletedSteps)
	assert.Equal(t, "r-9", got.ReportData.ReportID)
	assert.Equal(t, "r-8", got.LastCompletedReportID)
	require.Len(t, got.RecentReports, 1)
	assert.True(t, got.Loading[LoadingGeneratingOutcomes], "hydration merges, loading flags survive")
}

func TestTracker_HydrateAbsentSlotKeepsDefaults(t *testing.T) {
	tr := newTestTracker(newMemStore())
	tr.Hydrate()
	assert.Equal(t, NewState(), tr.State())
}

func TestTracker_PersistFailureIsNonFatal(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("disk full")
	tr := newTestTracker(store)

	reportID := "r-1"
	tr.UpdateReportData(ReportPatch{ReportID: &reportID})

	// The failed write is logged and dropped; the next change retries.
	store.mu.Lock()
	store.fail = nil
	store.mu.Unlock()
	tr.SetCurrentStep(StepTitles)

	payload, ok := store.saved("workflow")
	require.True(t, ok)
	assert.Contains(t, string(payload), `"currentStep":2`)
}

// stampedStore wraps memStore with a recorded write time.
type stampedStore struct {
	*memStore
	at    time.Time
	atErr error
}

func (s *stampedStore) UpdatedAt(string) (time.Time, error) { return s.at, s.atErr }

func TestTracker_SlotUpdatedAt(t *testing.T) {
	at := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	tr := newTestTracker(&stampedStore{memStore: newMemStore(), at: at})

	got, ok := tr.SlotUpdatedAt()
	require.True(t, ok)
	assert.Equal(t, at, got)
}

func TestTracker_SlotUpdatedAtUnsupportedStore(t *testing.T) {
	_, ok := newTestTracker(newMemStore()).SlotUpdatedAt()
	assert.False(t, ok, "stores without write times report none")

	failing := &stampedStore{memStore: newMemStore(), atErr: errors.New("no row")}
	_, ok = newTestTracker(failing).SlotUpdatedAt()
	assert.False(t, ok)
}

func TestTracker_CompleteReportUsesClock(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tr := NewTracker(newMemStore(), "workflow",
		WithPersistDebounce(0),
		WithClock(func() time.Time { return now }),
	)

	got := tr.CompleteReport("r-1", "Acme", "Initech")
	require.Len(t, got.RecentReports, 1)
	assert.Equal(t, now, got.RecentReports[0].CompletedAt)
}
