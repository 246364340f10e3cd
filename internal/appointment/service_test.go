package appointment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medora/clinic-scheduling/internal/availability"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

var testNow = time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC) // a Monday

func fixedClock() time.Time { return testNow }

// ---------- Fakes ----------

type fakeApptRepo struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment
	events       []EventLog
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (f *fakeApptRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeApptRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeApptRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func isActive(s Status) bool {
	return s == StatusPending || s == StatusBooked
}

func (f *fakeApptRepo) GetActiveAppointmentAt(_ context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Start == start && isActive(a.Status) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeApptRepo) ListReservedStarts(_ context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var starts []schedule.TimeOfDay
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && isActive(a.Status) {
			starts = append(starts, a.Start)
		}
	}
	return starts, nil
}

func (f *fakeApptRepo) CreateAppointment(_ context.Context, appt Appointment) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt.CreatedAt = testNow
	appt.UpdatedAt = testNow
	cp := appt
	f.appointments[appt.ID] = &cp
	out := appt
	return &out, nil
}

func (f *fakeApptRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = testNow
	cp := *a
	return &cp, nil
}

func (f *fakeApptRepo) CompleteAppointment(_ context.Context, id uuid.UUID, report CompletionReport) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.Status != StatusBooked {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCompleted
	a.Report = &report
	a.UpdatedAt = testNow
	cp := *a
	return &cp, nil
}

func (f *fakeApptRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	appt, err := f.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patient, err := f.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := f.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}
	return &Detail{Appointment: *appt, Patient: patient, Doctor: doctor}, nil
}

func (f *fakeApptRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []Detail
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			result = append(result, Detail{Appointment: *a})
		}
	}
	return result, nil
}

func (f *fakeApptRepo) ListAppointmentsByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []Detail
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) {
			result = append(result, Detail{Appointment: *a})
		}
	}
	return result, nil
}

func (f *fakeApptRepo) FindStalePending(_ context.Context, now time.Time) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []Appointment
	for _, a := range f.appointments {
		if a.Status != StatusPending {
			continue
		}
		if a.Start.At(a.Date).Before(now) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (f *fakeApptRepo) InsertEvent(_ context.Context, ev EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeApptRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		types = append(types, ev.EventType)
	}
	return types
}

// fakeLocker serializes critical sections per reservation triple, modeling a
// lock that waits instead of failing fast.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *fakeLocker) WithReservationLock(ctx context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("%s:%s:%s", doctorID, date.Format("2006-01-02"), start)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}

type fakeScheduleRepo struct {
	schedules map[uuid.UUID]schedule.WeeklySchedule
}

func (f *fakeScheduleRepo) GetWeeklySchedule(_ context.Context, doctorID uuid.UUID) (schedule.WeeklySchedule, error) {
	return f.schedules[doctorID], nil
}

func (f *fakeScheduleRepo) SetWeeklySchedule(_ context.Context, doctorID uuid.UUID, ws schedule.WeeklySchedule) error {
	f.schedules[doctorID] = ws
	return nil
}

type fakeTimeOffRepo struct {
	intervals []timeoff.Interval
}

func (f *fakeTimeOffRepo) InsertInterval(_ context.Context, iv timeoff.Interval) error {
	f.intervals = append(f.intervals, iv)
	return nil
}

func (f *fakeTimeOffRepo) MarkCancelled(_ context.Context, doctorID, key uuid.UUID) error {
	for i := range f.intervals {
		if f.intervals[i].DoctorID == doctorID && f.intervals[i].Key == key {
			f.intervals[i].Cancelled = true
			return nil
		}
	}
	return timeoff.ErrIntervalNotFound
}

func (f *fakeTimeOffRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]timeoff.Interval, error) {
	var result []timeoff.Interval
	for _, iv := range f.intervals {
		if iv.DoctorID == doctorID {
			result = append(result, iv)
		}
	}
	return result, nil
}

// ---------- Harness ----------

type testEnv struct {
	svc       *Service
	repo      *fakeApptRepo
	timeOff   *timeoff.Registry
	doctorID  uuid.UUID
	patientID uuid.UUID
	monday    time.Time
	tuesday   time.Time
}

func newTestEnv(t *testing.T, requiresApproval bool, cacheSize int) *testEnv {
	t.Helper()

	repo := newFakeApptRepo()
	doctorID := uuid.New()
	patientID := uuid.New()

	repo.doctors[doctorID] = &Doctor{
		ID:               doctorID,
		Name:             "Dr. Reyes",
		RequiresApproval: requiresApproval,
		FeeCents:         15000,
	}
	repo.patients[patientID] = &Patient{ID: patientID, Name: "Ada Cole"}

	scheduleRepo := &fakeScheduleRepo{schedules: map[uuid.UUID]schedule.WeeklySchedule{
		doctorID: {
			time.Monday:  {Start: 9 * 60, End: 12 * 60},
			time.Tuesday: {Start: 9 * 60, End: 12 * 60},
		},
	}}

	timeOff := timeoff.NewRegistry(&fakeTimeOffRepo{})
	resolver := availability.NewResolver(time.Hour, 14, fixedClock)

	var cache *availability.Cache
	if cacheSize > 0 {
		var err error
		cache, err = availability.NewCache(cacheSize)
		if err != nil {
			t.Fatalf("new cache: %v", err)
		}
	}

	svc := NewService(repo, schedule.NewStore(scheduleRepo), timeOff, resolver, cache, newFakeLocker(), zerolog.Nop())
	svc.SetClock(fixedClock)

	monday := schedule.DateOnly(testNow)
	return &testEnv{
		svc:       svc,
		repo:      repo,
		timeOff:   timeOff,
		doctorID:  doctorID,
		patientID: patientID,
		monday:    monday,
		tuesday:   monday.AddDate(0, 0, 1),
	}
}

// ---------- Creation ----------

func TestCreateAppointmentBooksDirectly(t *testing.T) {
	env := newTestEnv(t, false, 0)

	appt, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "first visit")
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	if appt.Status != StatusBooked {
		t.Errorf("status = %s, want booked", appt.Status)
	}
	if appt.Start != 9*60 || appt.End != 10*60 {
		t.Errorf("slot bounds %s-%s, want 09:00-10:00", appt.Start, appt.End)
	}
	if appt.PriceCents != 15000 {
		t.Errorf("price = %d, want doctor's fee 15000", appt.PriceCents)
	}

	types := env.repo.eventTypes()
	if len(types) != 1 || types[0] != EventAppointmentBooked {
		t.Errorf("events = %v, want [%s]", types, EventAppointmentBooked)
	}
}

func TestCreateAppointmentPendingWhenApprovalRequired(t *testing.T) {
	env := newTestEnv(t, true, 0)

	appt, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "")
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	if appt.Status != StatusPending {
		t.Errorf("status = %s, want pending", appt.Status)
	}

	types := env.repo.eventTypes()
	if len(types) != 1 || types[0] != EventAppointmentRequested {
		t.Errorf("events = %v, want [%s]", types, EventAppointmentRequested)
	}
}

func TestCreateAppointmentUnknownActors(t *testing.T) {
	env := newTestEnv(t, false, 0)

	_, err := env.svc.CreateAppointment(context.Background(), env.doctorID, uuid.New(), env.tuesday, 9*60, "")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}

	_, err = env.svc.CreateAppointment(context.Background(), uuid.New(), env.patientID, env.tuesday, 9*60, "")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestCreateAppointmentRejectsTakenSlot(t *testing.T) {
	env := newTestEnv(t, false, 0)

	if _, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, ""); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "")
	if !errors.Is(err, ErrSlotNotOpen) {
		t.Errorf("expected ErrSlotNotOpen for a taken slot, got %v", err)
	}
}

func TestCreateAppointmentRejectsPastSlot(t *testing.T) {
	env := newTestEnv(t, false, 0)

	// testNow is Monday 10:30; the 09:00 slot today is already past.
	_, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.monday, 9*60, "")
	if !errors.Is(err, ErrSlotNotOpen) {
		t.Errorf("expected ErrSlotNotOpen for a past slot, got %v", err)
	}
}

func TestCreateAppointmentRejectsOffScheduleSlot(t *testing.T) {
	env := newTestEnv(t, false, 0)

	// Wednesday has no working window.
	wednesday := env.monday.AddDate(0, 0, 2)
	_, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, wednesday, 9*60, "")
	if !errors.Is(err, ErrSlotNotOpen) {
		t.Errorf("expected ErrSlotNotOpen on a non-working day, got %v", err)
	}

	// 13:00 is outside the Tuesday window.
	_, err = env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 13*60, "")
	if !errors.Is(err, ErrSlotNotOpen) {
		t.Errorf("expected ErrSlotNotOpen outside the window, got %v", err)
	}
}

func TestCreateAppointmentRejectsBlockedDate(t *testing.T) {
	env := newTestEnv(t, false, 0)

	if _, err := env.timeOff.AddInterval(context.Background(), env.doctorID, env.tuesday, env.tuesday, "conference"); err != nil {
		t.Fatalf("add time off: %v", err)
	}

	_, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "")
	if !errors.Is(err, ErrSlotNotOpen) {
		t.Errorf("expected ErrSlotNotOpen on a blocked date, got %v", err)
	}
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	env := newTestEnv(t, false, 0)

	otherPatient := uuid.New()
	env.repo.patients[otherPatient] = &Patient{ID: otherPatient, Name: "Ben Ito"}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		_, errs[0] = env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 10*60, "")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = env.svc.CreateAppointment(context.Background(), env.doctorID, otherPatient, env.tuesday, 10*60, "")
	}()

	wg.Wait()

	successes := 0
	conflicts := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSlotAlreadyBooked), errors.Is(err, ErrSlotNotOpen):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 || conflicts != 1 {
		t.Errorf("expected exactly one winner and one conflict, got %d successes, %d conflicts", successes, conflicts)
	}

	if _, err := env.repo.GetActiveAppointmentAt(context.Background(), env.doctorID, env.tuesday, 10*60); err != nil {
		t.Errorf("expected exactly one active appointment at the slot: %v", err)
	}
}

// ---------- Lifecycle ----------

func (env *testEnv) mustCreate(t *testing.T) *Appointment {
	t.Helper()
	appt, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "")
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}

func TestApprovePendingBecomesBooked(t *testing.T) {
	env := newTestEnv(t, true, 0)
	appt := env.mustCreate(t)

	updated, err := env.svc.ApproveAppointment(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("approve appointment: %v", err)
	}
	if updated.Status != StatusBooked {
		t.Errorf("status = %s, want booked", updated.Status)
	}
}

func TestApproveBookedFails(t *testing.T) {
	env := newTestEnv(t, false, 0)
	appt := env.mustCreate(t) // already booked

	_, err := env.svc.ApproveAppointment(context.Background(), appt.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelFromBookedAndPending(t *testing.T) {
	for _, approval := range []bool{false, true} {
		env := newTestEnv(t, approval, 0)
		appt := env.mustCreate(t)

		updated, err := env.svc.CancelAppointment(context.Background(), appt.ID, "patient request")
		if err != nil {
			t.Fatalf("cancel (approval=%v): %v", approval, err)
		}
		if updated.Status != StatusCancelled {
			t.Errorf("status = %s, want cancelled", updated.Status)
		}
	}
}

func TestCancelFreesSlotImmediately(t *testing.T) {
	env := newTestEnv(t, false, 0)
	appt := env.mustCreate(t)

	if _, err := env.svc.CancelAppointment(context.Background(), appt.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	again, err := env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "")
	if err != nil {
		t.Fatalf("rebooking a cancelled slot must succeed: %v", err)
	}
	if again.Status != StatusBooked {
		t.Errorf("status = %s, want booked", again.Status)
	}
}

func TestTerminalStatesRejectAllTransitions(t *testing.T) {
	env := newTestEnv(t, false, 0)
	appt := env.mustCreate(t)

	if _, err := env.svc.CancelAppointment(context.Background(), appt.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := env.svc.CancelAppointment(context.Background(), appt.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel after cancel: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := env.svc.ApproveAppointment(context.Background(), appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approve after cancel: expected ErrInvalidTransition, got %v", err)
	}
	report := CompletionReport{Diagnosis: "flu", Treatment: "rest"}
	if _, err := env.svc.CompleteAppointment(context.Background(), appt.ID, report); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("complete after cancel: expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteAttachesReport(t *testing.T) {
	env := newTestEnv(t, false, 0)
	appt := env.mustCreate(t)

	report := CompletionReport{Diagnosis: "seasonal flu", Treatment: "rest and fluids", Notes: "recheck in a week"}
	updated, err := env.svc.CompleteAppointment(context.Background(), appt.ID, report)
	if err != nil {
		t.Fatalf("complete appointment: %v", err)
	}

	if updated.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", updated.Status)
	}
	if updated.Report == nil || *updated.Report != report {
		t.Errorf("report = %+v, want %+v", updated.Report, report)
	}
}

func TestCompleteWithoutDiagnosisLeavesStatusUnchanged(t *testing.T) {
	env := newTestEnv(t, false, 0)
	appt := env.mustCreate(t)

	_, err := env.svc.CompleteAppointment(context.Background(), appt.ID, CompletionReport{Treatment: "rest"})
	if !errors.Is(err, ErrInvalidReport) {
		t.Fatalf("expected ErrInvalidReport, got %v", err)
	}

	current, err := env.repo.GetAppointmentByID(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("reload appointment: %v", err)
	}
	if current.Status != StatusBooked {
		t.Errorf("status = %s, want booked (all-or-nothing)", current.Status)
	}
	if current.Report != nil {
		t.Error("no report must be attached on a failed completion")
	}
}

func TestCompletePendingFails(t *testing.T) {
	env := newTestEnv(t, true, 0)
	appt := env.mustCreate(t)

	report := CompletionReport{Diagnosis: "flu", Treatment: "rest"}
	if _, err := env.svc.CompleteAppointment(context.Background(), appt.ID, report); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for pending, got %v", err)
	}
}

// ---------- Sweep ----------

func TestSweepStalePendingCancels(t *testing.T) {
	env := newTestEnv(t, true, 0)

	stale := Appointment{
		ID:        uuid.New(),
		DoctorID:  env.doctorID,
		PatientID: env.patientID,
		Date:      env.monday,
		Start:     9 * 60,
		End:       10 * 60,
		Status:    StatusPending,
	}
	if _, err := env.repo.CreateAppointment(context.Background(), stale); err != nil {
		t.Fatalf("seed stale pending: %v", err)
	}

	// Starts exactly at the current minute: not yet past, must survive.
	atNow := Appointment{
		ID:        uuid.New(),
		DoctorID:  env.doctorID,
		PatientID: env.patientID,
		Date:      env.monday,
		Start:     10*60 + 30,
		End:       11*60 + 30,
		Status:    StatusPending,
	}
	if _, err := env.repo.CreateAppointment(context.Background(), atNow); err != nil {
		t.Fatalf("seed boundary pending: %v", err)
	}

	fresh := env.mustCreate(t) // pending for tomorrow

	if err := env.svc.SweepStalePending(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	swept, err := env.repo.GetAppointmentByID(context.Background(), stale.ID)
	if err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if swept.Status != StatusCancelled {
		t.Errorf("stale pending status = %s, want cancelled", swept.Status)
	}

	boundary, err := env.repo.GetAppointmentByID(context.Background(), atNow.ID)
	if err != nil {
		t.Fatalf("reload boundary: %v", err)
	}
	if boundary.Status != StatusPending {
		t.Errorf("pending starting at the current minute = %s, want pending", boundary.Status)
	}

	kept, err := env.repo.GetAppointmentByID(context.Background(), fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh: %v", err)
	}
	if kept.Status != StatusPending {
		t.Errorf("future pending status = %s, want pending", kept.Status)
	}
}

// ---------- Availability through the service ----------

func TestAvailabilityReflectsReservations(t *testing.T) {
	env := newTestEnv(t, false, 0)
	env.mustCreate(t) // books Tuesday 09:00

	slots, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if slots[0].State != availability.SlotTaken {
		t.Errorf("09:00 state = %s, want taken", slots[0].State)
	}
	if slots[1].State != availability.SlotOpen || slots[2].State != availability.SlotOpen {
		t.Errorf("remaining slots must stay open, got %s and %s", slots[1].State, slots[2].State)
	}
}

func TestAvailabilityUnknownDoctor(t *testing.T) {
	env := newTestEnv(t, false, 0)

	_, err := env.svc.Availability(context.Background(), uuid.New(), env.tuesday)
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestAvailabilityCacheInvalidatedByBooking(t *testing.T) {
	env := newTestEnv(t, false, 16)

	// Prime the cache for tomorrow.
	before, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if before[0].State != availability.SlotOpen {
		t.Fatalf("expected 09:00 open before booking, got %s", before[0].State)
	}

	env.mustCreate(t) // books Tuesday 09:00, must invalidate the cached day

	after, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if after[0].State != availability.SlotTaken {
		t.Errorf("09:00 state after booking = %s, want taken (stale cache not invalidated)", after[0].State)
	}
}

func TestAvailabilityCacheInvalidatedByTimeOff(t *testing.T) {
	env := newTestEnv(t, false, 16)

	// Prime the cache while the day is still open.
	before, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(before) != 3 {
		t.Fatalf("expected 3 open slots before time off, got %d", len(before))
	}

	if _, err := env.svc.AddTimeOff(context.Background(), env.doctorID, env.tuesday, env.tuesday, "conference"); err != nil {
		t.Fatalf("add time off: %v", err)
	}

	_, err = env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "")
	if !errors.Is(err, ErrSlotNotOpen) {
		t.Errorf("booking on a freshly blocked date: got %v, want ErrSlotNotOpen", err)
	}

	after, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("blocked day still resolves %d slots (stale cache)", len(after))
	}
}

func TestAvailabilityCacheInvalidatedByTimeOffCancel(t *testing.T) {
	env := newTestEnv(t, false, 16)

	key, err := env.svc.AddTimeOff(context.Background(), env.doctorID, env.tuesday, env.tuesday, "conference")
	if err != nil {
		t.Fatalf("add time off: %v", err)
	}

	// Prime the cache with the blocked (empty) resolution.
	blocked, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(blocked) != 0 {
		t.Fatalf("expected no slots on the blocked day, got %d", len(blocked))
	}

	if err := env.svc.CancelTimeOff(context.Background(), env.doctorID, key); err != nil {
		t.Fatalf("cancel time off: %v", err)
	}

	freed, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(freed) != 3 {
		t.Errorf("freed day resolves %d slots, want 3 (stale cache after cancel)", len(freed))
	}
}

func TestAvailabilityCacheInvalidatedByScheduleChange(t *testing.T) {
	env := newTestEnv(t, false, 16)

	before, err := env.svc.Availability(context.Background(), env.doctorID, env.tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(before) != 3 {
		t.Fatalf("expected 3 slots before the change, got %d", len(before))
	}

	// Drop the Tuesday window entirely.
	err = env.svc.SetSchedule(context.Background(), env.doctorID, schedule.WeeklySchedule{
		time.Monday: {Start: 9 * 60, End: 12 * 60},
	})
	if err != nil {
		t.Fatalf("set schedule: %v", err)
	}

	_, err = env.svc.CreateAppointment(context.Background(), env.doctorID, env.patientID, env.tuesday, 9*60, "")
	if !errors.Is(err, ErrSlotNotOpen) {
		t.Errorf("booking outside the shrunk template: got %v, want ErrSlotNotOpen", err)
	}
}
