package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	campsiteerrors "basecamp/internal/campsites/errors"
	mongotx "basecamp/pkg/db/mongo"
	"basecamp/pkg/model"
)

// Mock campsite repository with overridable behavior per test
type mockCampsiteRepository struct {
	createFunc     func(ctx context.Context, campsite *model.Campsite) error
	findByIDFunc   func(ctx context.Context, id string) (*model.Campsite, error)
	findAllFunc    func(ctx context.Context, limit int, offset int64) ([]*model.Campsite, error)
	countFunc      func(ctx context.Context) (int64, error)
	updateNameFunc func(ctx context.Context, id string, name string) error
	deleteFunc     func(ctx context.Context, id string) error
}

func (m *mockCampsiteRepository) Create(ctx context.Context, campsite *model.Campsite) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, campsite)
	}
	campsite.ID = "000000000000000000000001"
	return nil
}

func (m *mockCampsiteRepository) FindByID(ctx context.Context, id string) (*model.Campsite, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Campsite{ID: id, Name: "Pine Grove", Capacity: 10}, nil
}

func (m *mockCampsiteRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Campsite, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Campsite{}, nil
}

func (m *mockCampsiteRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockCampsiteRepository) UpdateName(ctx context.Context, id string, name string) error {
	if m.updateNameFunc != nil {
		return m.updateNameFunc(ctx, id, name)
	}
	return nil
}

func (m *mockCampsiteRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockCampsiteRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

// fakeAvailabilityRepository is a stateful in-memory ledger that mirrors the
// Mongo semantics: finds return copies, and mutations are conditioned on the
// version and the counter bounds the way the real update filters are.
type fakeAvailabilityRepository struct {
	mu      sync.Mutex
	nextID  int
	records map[string]*model.Availability
}

func newFakeAvailabilityRepository() *fakeAvailabilityRepository {
	return &fakeAvailabilityRepository{records: make(map[string]*model.Availability)}
}

func (f *fakeAvailabilityRepository) seed(campsiteID string, date time.Time, sites int) *model.Availability {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	record := &model.Availability{
		ID:         fmt.Sprintf("%024d", f.nextID),
		CampsiteID: campsiteID,
		Date:       model.NormalizeDate(date),
		Sites:      sites,
		Version:    0,
	}
	f.records[record.ID] = record
	return record
}

func (f *fakeAvailabilityRepository) get(id string) *model.Availability {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.records[id]
	if stored == nil {
		return nil
	}
	copied := *stored
	return &copied
}

func (f *fakeAvailabilityRepository) InsertMany(ctx context.Context, records []*model.Availability) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing := make(map[string]bool)
	for _, stored := range f.records {
		existing[stored.CampsiteID+stored.Date.Format(model.DateLayout)] = true
	}

	for _, record := range records {
		if existing[record.CampsiteID+record.Date.Format(model.DateLayout)] {
			continue
		}
		f.nextID++
		record.ID = fmt.Sprintf("%024d", f.nextID)
		copied := *record
		f.records[record.ID] = &copied
	}
	return nil
}

func (f *fakeAvailabilityRepository) FindRange(ctx context.Context, campsiteID string, start, end time.Time) ([]*model.Availability, error) {
	return f.find(campsiteID, func(date time.Time) bool {
		return !date.Before(start) && date.Before(end)
	}), nil
}

func (f *fakeAvailabilityRepository) FindRangeInclusive(ctx context.Context, campsiteID string, start, end time.Time) ([]*model.Availability, error) {
	return f.find(campsiteID, func(date time.Time) bool {
		return !date.Before(start) && !date.After(end)
	}), nil
}

func (f *fakeAvailabilityRepository) find(campsiteID string, match func(time.Time) bool) []*model.Availability {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Availability
	for _, stored := range f.records {
		if stored.CampsiteID == campsiteID && match(stored.Date) {
			copied := *stored
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (f *fakeAvailabilityRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Availability
	for _, id := range ids {
		if stored, ok := f.records[id]; ok {
			copied := *stored
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeAvailabilityRepository) FindLast(ctx context.Context, campsiteID string) (*model.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var last *model.Availability
	for _, stored := range f.records {
		if stored.CampsiteID != campsiteID {
			continue
		}
		if last == nil || stored.Date.After(last.Date) {
			last = stored
		}
	}
	if last == nil {
		return nil, campsiteerrors.ErrAvailabilityNotFound
	}
	copied := *last
	return &copied, nil
}

func (f *fakeAvailabilityRepository) Decrement(ctx context.Context, record *model.Availability) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.records[record.ID]
	if !ok {
		return campsiteerrors.ErrAvailabilityNotFound
	}
	if stored.Version != record.Version {
		return campsiteerrors.ErrStaleVersion
	}
	if stored.Sites == 0 {
		return campsiteerrors.ErrInvariantViolation
	}

	stored.Sites--
	stored.Version++
	record.Sites--
	record.Version++
	return nil
}

func (f *fakeAvailabilityRepository) Increment(ctx context.Context, record *model.Availability, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.records[record.ID]
	if !ok {
		return campsiteerrors.ErrAvailabilityNotFound
	}
	if stored.Version != record.Version {
		return campsiteerrors.ErrStaleVersion
	}
	if stored.Sites >= capacity {
		return campsiteerrors.ErrInvariantViolation
	}

	stored.Sites++
	stored.Version++
	record.Sites++
	record.Version++
	return nil
}

func (f *fakeAvailabilityRepository) DeleteByCampsite(ctx context.Context, campsiteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, stored := range f.records {
		if stored.CampsiteID == campsiteID {
			delete(f.records, id)
		}
	}
	return nil
}

// fakeReservationRepository is a stateful in-memory reservation store.
// ExecuteTransaction just runs the function; transactional rollback is not
// simulated, tests assert on the error path before checking state.
type fakeReservationRepository struct {
	mu           sync.Mutex
	nextID       int
	reservations map[string]*model.Reservation
}

func newFakeReservationRepository() *fakeReservationRepository {
	return &fakeReservationRepository{reservations: make(map[string]*model.Reservation)}
}

func (f *fakeReservationRepository) get(id string) *model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.reservations[id]
	if stored == nil {
		return nil
	}
	copied := *stored
	return &copied
}

func (f *fakeReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	reservation.ID = fmt.Sprintf("%024d", f.nextID+1000)
	reservation.CreatedAt = time.Now().UTC()
	copied := *reservation
	f.reservations[reservation.ID] = &copied
	return nil
}

func (f *fakeReservationRepository) FindByID(ctx context.Context, campsiteID, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.reservations[id]
	if !ok || stored.CampsiteID != campsiteID {
		return nil, campsiteerrors.ErrReservationNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeReservationRepository) FindAllByCampsite(ctx context.Context, campsiteID string, limit int, offset int64) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Reservation
	for _, stored := range f.reservations {
		if stored.CampsiteID == campsiteID {
			copied := *stored
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReservationRepository) CountByCampsite(ctx context.Context, campsiteID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, stored := range f.reservations {
		if stored.CampsiteID == campsiteID {
			count++
		}
	}
	return count, nil
}

func (f *fakeReservationRepository) Update(ctx context.Context, reservation *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.reservations[reservation.ID]
	if !ok {
		return campsiteerrors.ErrReservationNotFound
	}
	stored.Name = reservation.Name
	stored.Email = reservation.Email
	stored.CheckIn = reservation.CheckIn
	stored.CheckOut = reservation.CheckOut
	stored.AvailabilityIDs = reservation.AvailabilityIDs
	return nil
}

func (f *fakeReservationRepository) Delete(ctx context.Context, campsiteID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.reservations[id]
	if !ok || stored.CampsiteID != campsiteID {
		return campsiteerrors.ErrReservationNotFound
	}
	delete(f.reservations, id)
	return nil
}

func (f *fakeReservationRepository) DeleteByCampsite(ctx context.Context, campsiteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, stored := range f.reservations {
		if stored.CampsiteID == campsiteID {
			delete(f.reservations, id)
		}
	}
	return nil
}

func (f *fakeReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

// recordingPublisher captures lifecycle events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) ReservationCreated(_ context.Context, r *model.Reservation) {
	p.record("created", r)
}

func (p *recordingPublisher) ReservationModified(_ context.Context, r *model.Reservation) {
	p.record("modified", r)
}

func (p *recordingPublisher) ReservationCancelled(_ context.Context, r *model.Reservation) {
	p.record("cancelled", r)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) record(kind string, r *model.Reservation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, kind+":"+r.ID)
}

func (p *recordingPublisher) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
