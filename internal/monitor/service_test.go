package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/probe"
	"github.com/ferux/devicewatch/internal/registry"
	"github.com/ferux/devicewatch/internal/scheduler"
	"github.com/ferux/devicewatch/internal/storage"
	"github.com/ferux/devicewatch/internal/storage/jsonfile"
)

const unit = time.Millisecond * 10

// hangingProber never answers until cancelled, so status stays unknown.
var hangingProber = probe.Func(func(ctx context.Context, _ string, _ time.Duration) (bool, time.Duration, error) {
	<-ctx.Done()
	return false, 0, nil
})

var liveProber = probe.Func(func(context.Context, string, time.Duration) (bool, time.Duration, error) {
	return true, time.Millisecond, nil
})

type countingStore struct {
	storage.Store

	mu    sync.Mutex
	saves int
	err   error
}

func (s *countingStore) Save(ctx context.Context, devices []model.PersistedDevice) error {
	s.mu.Lock()
	s.saves++
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return err
	}

	return s.Store.Save(ctx, devices)
}

func (s *countingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}

func newService(t *testing.T, store storage.Store, p probe.Prober) *Service {
	t.Helper()
	is := is.New(t)

	reg := registry.New(zerolog.Nop())
	sched := scheduler.New(reg, p, nil, zerolog.Nop(),
		scheduler.WithTimeUnit(unit),
		scheduler.WithProbeTimeout(time.Millisecond*100),
	)
	svc := New(reg, sched, store, zerolog.Nop())

	t.Cleanup(func() {
		_ = svc.Shutdown(context.Background())
	})

	is.NoErr(svc.Bootstrap(context.Background()))

	return svc
}

func TestRestartRestoresDevices(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "devices.json")

	first := newService(t, jsonfile.New(path), liveProber)
	added, err := first.Add(context.Background(), "Router1", "10.0.0.1", 5)
	is.NoErr(err)
	is.NoErr(first.Shutdown(context.Background()))

	second := newService(t, jsonfile.New(path), hangingProber)
	devices := second.List()
	is.Equal(len(devices), 1)

	d := devices[0]
	is.Equal(d.Name, "Router1")
	is.Equal(d.Address, "10.0.0.1")
	is.Equal(d.RefreshInterval, 5)
	is.True(d.AddedAt.Equal(added.AddedAt))
	is.Equal(d.Status, model.StatusUnknown)
	is.True(d.LastCheckAt.IsZero())
	is.Equal(second.ActiveTasks(), 1)
}

func TestRejectedOperationsDoNotTouchStore(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "devices.json")
	store := &countingStore{Store: jsonfile.New(path)}
	svc := newService(t, store, hangingProber)

	d, err := svc.Add(context.Background(), "Router1", "10.0.0.1", 5)
	is.NoErr(err)

	before, err := os.ReadFile(path)
	is.NoErr(err)
	saves := store.Saves()

	_, err = svc.Add(context.Background(), "Router1", "10.0.0.2", 5)
	is.True(errors.Is(err, model.ErrDuplicateName))

	_, err = svc.Add(context.Background(), "Switch", "10.0.0.2", 0)
	is.True(errors.Is(err, model.ErrInvalidInterval))

	_, err = svc.Add(context.Background(), "", "10.0.0.2", 1)
	is.True(errors.Is(err, model.ErrEmptyName))

	err = svc.Remove(context.Background(), "no-such-device")
	is.True(errors.Is(err, model.ErrNotFound))

	zero := 0
	_, err = svc.Edit(context.Background(), d.ID, model.DeviceEdit{Interval: &zero})
	is.True(errors.Is(err, model.ErrInvalidInterval))

	after, err := os.ReadFile(path)
	is.NoErr(err)

	is.Equal(string(before), string(after))
	is.Equal(saves, store.Saves())
	is.Equal(len(svc.List()), 1)
	is.Equal(svc.ActiveTasks(), 1)
}

func TestSavesOnlyOnStructuralChanges(t *testing.T) {
	is := is.New(t)
	store := &countingStore{Store: jsonfile.New(filepath.Join(t.TempDir(), "devices.json"))}
	svc := newService(t, store, liveProber)

	d, err := svc.Add(context.Background(), "Router1", "10.0.0.1", 1)
	is.NoErr(err)
	is.Equal(store.Saves(), 1)

	time.Sleep(unit * 10)
	is.Equal(store.Saves(), 1) // poll results are not persisted

	got, err := svc.Get(d.ID)
	is.NoErr(err)
	is.Equal(got.Status, model.StatusActive)

	name := "Router2"
	_, err = svc.Edit(context.Background(), d.ID, model.DeviceEdit{Name: &name})
	is.NoErr(err)
	is.Equal(store.Saves(), 2)

	is.NoErr(svc.Remove(context.Background(), d.ID))
	is.Equal(store.Saves(), 3)
	is.Equal(svc.ActiveTasks(), 0)

	records, err := store.Load(context.Background())
	is.NoErr(err)
	is.Equal(len(records), 0)
}

func TestCorruptedStoreStartsEmpty(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "devices.json")
	is.NoErr(os.WriteFile(path, []byte(`{"devices": [{"name": `), 0o600))

	svc := newService(t, jsonfile.New(path), hangingProber)
	is.Equal(len(svc.List()), 0)
	is.Equal(len(svc.Warnings()), 1)

	// the store is usable afterwards
	_, err := svc.Add(context.Background(), "Router1", "10.0.0.1", 5)
	is.NoErr(err)
}

func TestInvalidStoredRecordsAreSkipped(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "devices.json")
	data := `{"devices":[
		{"name":"Router1","address":"10.0.0.1","addedAt":"2024-05-01T10:00:00Z","refreshIntervalSeconds":5},
		{"name":"Router1","address":"10.0.0.2","addedAt":"2024-05-01T10:00:00Z","refreshIntervalSeconds":5},
		{"name":"Zero","address":"10.0.0.3","addedAt":"2024-05-01T10:00:00Z","refreshIntervalSeconds":0}
	]}`
	is.NoErr(os.WriteFile(path, []byte(data), 0o600))

	svc := newService(t, jsonfile.New(path), hangingProber)
	is.Equal(len(svc.List()), 1)
	is.Equal(len(svc.Warnings()), 2)
}

type failingLoadStore struct {
	storage.Store
}

func (failingLoadStore) Load(context.Context) ([]model.PersistedDevice, error) {
	return nil, errors.New("permission denied")
}

func TestBootstrapFailsOnUnreadableStore(t *testing.T) {
	is := is.New(t)

	reg := registry.New(zerolog.Nop())
	sched := scheduler.New(reg, hangingProber, nil, zerolog.Nop())
	svc := New(reg, sched, failingLoadStore{}, zerolog.Nop())
	defer func() { _ = svc.Shutdown(context.Background()) }()

	is.True(svc.Bootstrap(context.Background()) != nil)
}

func TestSaveFailureIsReported(t *testing.T) {
	is := is.New(t)
	store := &countingStore{Store: jsonfile.New(filepath.Join(t.TempDir(), "devices.json")), err: errors.New("disk is full")}
	svc := newService(t, store, hangingProber)

	d, err := svc.Add(context.Background(), "Router1", "10.0.0.1", 5)
	is.True(err != nil)
	is.Equal(d.Name, "Router1") // device is kept in memory and polled
	is.Equal(svc.ActiveTasks(), 1)
}
