package booking

import (
	"testing"
	"time"

	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordedEvent struct {
	Topic string
	Event interface{}
}

type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) Publish(topic string, event interface{}) error {
	p.events = append(p.events, recordedEvent{Topic: topic, Event: event})
	return nil
}

func (p *recordingPublisher) topics() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Booking{},
		&models.Payment{},
		&models.Review{},
		&models.Notification{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	return NewService(db, NewDirectory(db), pub), db, pub
}

func createUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:           "Test " + string(role),
		Email:          string(role) + "-" + time.Now().Format("150405.000000000") + "@example.com",
		Password:       "hashed",
		Role:           role,
		Status:         models.UserStatusActive,
		ApprovalStatus: models.ApprovalStatusApproved,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func validInput() CreateInput {
	return CreateInput{
		ServiceType:   "regular_cleaning",
		ScheduledDate: time.Now().Add(48 * time.Hour),
		StartTime:     "10:00",
		Duration:      3,
		Address:       "2-11-3 Meguro, Tokyo",
	}
}

func TestCreateWithoutWorkerStartsPending(t *testing.T) {
	svc, db, pub := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Nil(t, b.WorkerID)
	assert.Equal(t, customer.ID, b.CustomerID)
	assert.Equal(t, []string{TopicBookingCreated}, pub.topics())
}

func TestCreateWithWorkerStartsConfirmed(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)

	in := validInput()
	in.WorkerID = &worker.ID
	b, err := svc.Create(customer.ID, in)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	require.NotNil(t, b.WorkerID)
	assert.Equal(t, worker.ID, *b.WorkerID)
}

func TestCreateRejectsPastDate(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)

	in := validInput()
	in.ScheduledDate = time.Now().Add(-time.Hour)
	_, err := svc.Create(customer.ID, in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateRejectsBadDuration(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)

	for _, d := range []int{0, 25, -1} {
		in := validInput()
		in.Duration = d
		_, err := svc.Create(customer.ID, in)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "duration %d", d)
	}
}

func TestCreateRejectsIneligibleWorker(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)

	cases := []struct {
		name   string
		mutate func(*models.User)
	}{
		{"not a worker", func(u *models.User) { u.Role = models.RoleCustomer }},
		{"suspended", func(u *models.User) { u.Status = models.UserStatusSuspended }},
		{"unapproved", func(u *models.User) { u.ApprovalStatus = models.ApprovalStatusPending }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			worker := createUser(t, db, models.RoleWorker)
			tc.mutate(worker)
			require.NoError(t, db.Save(worker).Error)

			in := validInput()
			in.WorkerID = &worker.ID
			_, err := svc.Create(customer.ID, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateUnknownWorkerIsNotFound(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)

	in := validInput()
	missing := uint(9999)
	in.WorkerID = &missing
	_, err := svc.Create(customer.ID, in)

	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestGetEnforcesParticipantAccess(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	stranger := createUser(t, db, models.RoleCustomer)
	admin := createUser(t, db, models.RoleAdmin)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	_, err = svc.Get(b.ID, Caller{ID: customer.ID, Role: models.RoleCustomer})
	assert.NoError(t, err)

	_, err = svc.Get(b.ID, Caller{ID: stranger.ID, Role: models.RoleCustomer})
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	_, err = svc.Get(b.ID, Caller{ID: admin.ID, Role: models.RoleAdmin})
	assert.NoError(t, err)
}

func TestAcceptConfirmsPendingBooking(t *testing.T) {
	svc, db, pub := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	accepted, err := svc.Accept(b.ID, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, accepted.Status)
	require.NotNil(t, accepted.WorkerID)
	assert.Equal(t, worker.ID, *accepted.WorkerID)

	topics := pub.topics()
	assert.Contains(t, topics, TopicBookingStatusChanged)
}

func TestAcceptLosesToEarlierWorker(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	first := createUser(t, db, models.RoleWorker)
	second := createUser(t, db, models.RoleWorker)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	_, err = svc.Accept(b.ID, first.ID)
	require.NoError(t, err)

	_, err = svc.Accept(b.ID, second.ID)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestAcceptRequiresActiveWorker(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)
	worker.Status = models.UserStatusSuspended
	require.NoError(t, db.Save(worker).Error)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	_, err = svc.Accept(b.ID, worker.ID)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
}

func TestAcceptRequiresApprovedWorker(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)
	worker.ApprovalStatus = models.ApprovalStatusPending
	require.NoError(t, db.Save(worker).Error)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	_, err = svc.Accept(b.ID, worker.ID)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
}

func TestRejectReturnsBookingToPool(t *testing.T) {
	svc, db, pub := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)

	in := validInput()
	in.WorkerID = &worker.ID
	b, err := svc.Create(customer.ID, in)
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusConfirmed, b.Status)

	rejected, err := svc.Reject(b.ID, worker.ID, "schedule conflict")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, rejected.Status)
	assert.Nil(t, rejected.WorkerID)

	var found bool
	for _, e := range pub.events {
		if sc, ok := e.Event.(StatusChangedEvent); ok && sc.Reason == "schedule conflict" {
			found = true
		}
	}
	assert.True(t, found, "reject reason should ride on the status event")
}

func TestRejectByOtherWorkerDenied(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	assigned := createUser(t, db, models.RoleWorker)
	other := createUser(t, db, models.RoleWorker)

	in := validInput()
	in.WorkerID = &assigned.ID
	b, err := svc.Create(customer.ID, in)
	require.NoError(t, err)

	_, err = svc.Reject(b.ID, other.ID, "")
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
}

func TestCompleteStampsCompletedAt(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)

	in := validInput()
	in.WorkerID = &worker.ID
	b, err := svc.Create(customer.ID, in)
	require.NoError(t, err)

	done, err := svc.Complete(b.ID, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.WithinDuration(t, time.Now(), *done.CompletedAt, 5*time.Second)
}

func TestCompleteOnlyByAssignedWorker(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	assigned := createUser(t, db, models.RoleWorker)
	other := createUser(t, db, models.RoleWorker)

	in := validInput()
	in.WorkerID = &assigned.ID
	b, err := svc.Create(customer.ID, in)
	require.NoError(t, err)

	_, err = svc.Complete(b.ID, other.ID)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
}

func TestCompletePendingRejected(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	// bind the worker but keep it pending
	require.NoError(t, db.Model(&models.Booking{}).
		Where("id = ?", b.ID).
		Update("worker_id", worker.ID).Error)

	_, err = svc.Complete(b.ID, worker.ID)
	var serr *StateError
	require.ErrorAs(t, err, &serr)
}

func TestCancelTerminalStates(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)
	caller := Caller{ID: customer.ID, Role: models.RoleCustomer}

	in := validInput()
	in.WorkerID = &worker.ID
	b, err := svc.Create(customer.ID, in)
	require.NoError(t, err)
	_, err = svc.Complete(b.ID, worker.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(b.ID, caller)
	var serr *StateError
	require.ErrorAs(t, err, &serr)

	b2, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)
	_, err = svc.Cancel(b2.ID, caller)
	require.NoError(t, err)
	_, err = svc.Cancel(b2.ID, caller)
	require.ErrorAs(t, err, &serr)
}

func TestUpdateTerminalBookingRejected(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)
	caller := Caller{ID: customer.ID, Role: models.RoleCustomer}

	in := validInput()
	in.WorkerID = &worker.ID
	b, err := svc.Create(customer.ID, in)
	require.NoError(t, err)
	_, err = svc.Complete(b.ID, worker.ID)
	require.NoError(t, err)

	notes := "please use the spare key"
	_, err = svc.Update(b.ID, caller, Patch{Notes: &notes})
	var serr *StateError
	require.ErrorAs(t, err, &serr)
}

func TestUpdateAssigningWorkerAutoConfirms(t *testing.T) {
	svc, db, pub := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)
	caller := Caller{ID: customer.ID, Role: models.RoleCustomer}

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	pub.events = nil
	updated, err := svc.Update(b.ID, caller, Patch{WorkerID: &worker.ID})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)

	require.Contains(t, pub.topics(), TopicBookingStatusChanged)
	for _, e := range pub.events {
		switch ev := e.Event.(type) {
		case StatusChangedEvent:
			assert.Equal(t, models.BookingStatusPending, ev.From)
			assert.Equal(t, models.BookingStatusConfirmed, ev.To)
		case UpdatedEvent:
			assert.Equal(t, ChangeStatus, ev.ChangeType)
		}
	}
}

func TestUpdateStatusRequiresWorker(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	caller := Caller{ID: customer.ID, Role: models.RoleCustomer}

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	st := models.BookingStatusConfirmed
	_, err = svc.Update(b.ID, caller, Patch{Status: &st})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpdateCompleteFromPendingRejected(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	caller := Caller{ID: customer.ID, Role: models.RoleCustomer}

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)

	st := models.BookingStatusCompleted
	_, err = svc.Update(b.ID, caller, Patch{Status: &st})
	var serr *StateError
	require.ErrorAs(t, err, &serr)
}

func TestUpdateDateChangeClassified(t *testing.T) {
	svc, db, pub := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	caller := Caller{ID: customer.ID, Role: models.RoleCustomer}

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)
	pub.events = nil

	newDate := time.Now().Add(96 * time.Hour)
	_, err = svc.Update(b.ID, caller, Patch{ScheduledDate: &newDate})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	upd, ok := pub.events[0].Event.(UpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, ChangeDate, upd.ChangeType)
}

func TestListScopesByRole(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	otherCustomer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)

	_, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)
	in := validInput()
	in.WorkerID = &worker.ID
	_, err = svc.Create(otherCustomer.ID, in)
	require.NoError(t, err)

	mine, pg, err := svc.List(Caller{ID: customer.ID, Role: models.RoleCustomer}, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, int64(1), pg.Total)

	assigned, _, err := svc.List(Caller{ID: worker.ID, Role: models.RoleWorker}, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	pool, _, err := svc.List(Caller{ID: worker.ID, Role: models.RoleWorker}, ListFilter{Available: true})
	require.NoError(t, err)
	assert.Len(t, pool, 1)
	assert.Equal(t, models.BookingStatusPending, pool[0].Status)

	all, _, err := svc.List(Caller{ID: 1, Role: models.RoleAdmin}, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListStatusFilterCSV(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	caller := Caller{ID: customer.ID, Role: models.RoleCustomer}

	b1, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)
	_, err = svc.Create(customer.ID, validInput())
	require.NoError(t, err)
	_, err = svc.Cancel(b1.ID, caller)
	require.NoError(t, err)

	got, _, err := svc.List(caller, ListFilter{Status: "CANCELLED"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, _, err = svc.List(caller, ListFilter{Status: "PENDING,CANCELLED"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, _, err = svc.List(caller, ListFilter{Status: "bogus"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestWorkerBindingInvariant(t *testing.T) {
	svc, db, _ := newTestService(t)
	customer := createUser(t, db, models.RoleCustomer)
	worker := createUser(t, db, models.RoleWorker)

	b, err := svc.Create(customer.ID, validInput())
	require.NoError(t, err)
	accepted, err := svc.Accept(b.ID, worker.ID)
	require.NoError(t, err)

	done, err := svc.Complete(accepted.ID, worker.ID)
	require.NoError(t, err)

	// every confirmed/in-progress/completed booking carries its worker
	for _, id := range []uint{accepted.ID, done.ID} {
		var row models.Booking
		require.NoError(t, db.First(&row, id).Error)
		if row.Status == models.BookingStatusConfirmed ||
			row.Status == models.BookingStatusInProgress ||
			row.Status == models.BookingStatusCompleted {
			assert.NotNil(t, row.WorkerID)
		}
	}
}
