package booking

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glamqueue/glamqueue/internal/database"
	"github.com/glamqueue/glamqueue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerodha/logf"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ctx = context.Background()

type fixture struct {
	svc     *Service
	db      *gorm.DB
	salon   models.Salon
	service models.Service
	client  models.User
}

func newFixture(t *testing.T) fixture {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	f := fixture{
		svc:    NewService(db, logf.New(logf.Opts{})),
		db:     db,
		salon:  models.Salon{Name: "Shear Genius", Address: "1 Main St", IsOpen: true},
		client: models.User{Email: "client@x.com", PasswordHash: "x", EmailVerified: true},
	}
	require.NoError(t, db.Create(&f.salon).Error)
	require.NoError(t, db.Create(&f.client).Error)

	f.service = models.Service{SalonID: f.salon.ID, Name: "Haircut", Price: 4500, DurationMin: 45}
	require.NoError(t, db.Create(&f.service).Error)
	return f
}

func (f fixture) book(t *testing.T) models.Booking {
	b, err := f.svc.Create(ctx, f.client.ID, CreateRequest{
		SalonID:   f.salon.ID,
		ServiceID: f.service.ID,
		StartAt:   time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return b
}

func TestListSalons(t *testing.T) {
	f := newFixture(t)
	closed := models.Salon{Name: "Shuttered", Address: "2 Side St", IsOpen: false}
	require.NoError(t, f.db.Create(&closed).Error)

	salons, err := f.svc.ListSalons(ctx)
	require.NoError(t, err)
	require.Len(t, salons, 1, "closed salons leaked into the listing")
	assert.Equal(t, f.salon.ID, salons[0].ID)
}

func TestListServicesScoped(t *testing.T) {
	f := newFixture(t)
	other := models.Salon{Name: "Other", Address: "3 Back St", IsOpen: true}
	require.NoError(t, f.db.Create(&other).Error)
	require.NoError(t, f.db.Create(&models.Service{SalonID: other.ID, Name: "Manicure", Price: 3000, DurationMin: 30}).Error)

	all, err := f.svc.ListServices(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := f.svc.ListServices(ctx, f.salon.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, f.service.ID, scoped[0].ID)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	start := time.Now().Add(24 * time.Hour)
	b, err := f.svc.Create(ctx, f.client.ID, CreateRequest{
		SalonID:   f.salon.ID,
		ServiceID: f.service.ID,
		StartAt:   start,
		Notes:     "please be gentle",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, b.Status, "new booking isn't pending")
	assert.Equal(t, start.Add(45*time.Minute), b.EndAt, "end time not derived from service duration")
	assert.Equal(t, f.client.ID, b.ClientID)
}

func TestCreateRejectsPastStart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(ctx, f.client.ID, CreateRequest{
		SalonID:   f.salon.ID,
		ServiceID: f.service.ID,
		StartAt:   time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestCreateRejectsForeignService(t *testing.T) {
	f := newFixture(t)
	other := models.Salon{Name: "Other", Address: "3 Back St", IsOpen: true}
	require.NoError(t, f.db.Create(&other).Error)

	// Service belongs to f.salon, not to other.
	_, err := f.svc.Create(ctx, f.client.ID, CreateRequest{
		SalonID:   other.ID,
		ServiceID: f.service.ID,
		StartAt:   time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestStatusWorkflow(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)

	b, err := f.svc.UpdateStatus(ctx, b.ID, models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)

	b, err = f.svc.UpdateStatus(ctx, b.ID, models.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, b.Status)

	// Completed is terminal.
	_, err = f.svc.UpdateStatus(ctx, b.ID, models.BookingStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusSkipsNotAllowed(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)

	// pending -> completed skips confirmation.
	_, err := f.svc.UpdateStatus(ctx, b.ID, models.BookingStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, 9999, models.BookingStatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)

	cancelled, err := f.svc.Cancel(ctx, f.client.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	// Cancelled is terminal; cancelling again is rejected.
	_, err = f.svc.Cancel(ctx, f.client.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)

	stranger := models.User{Email: "stranger@x.com", PasswordHash: "x"}
	require.NoError(t, f.db.Create(&stranger).Error)

	_, err := f.svc.Cancel(ctx, stranger.ID, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Cancel(ctx, f.client.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForClient(t *testing.T) {
	f := newFixture(t)
	f.book(t)

	other := models.User{Email: "other@x.com", PasswordHash: "x"}
	require.NoError(t, f.db.Create(&other).Error)
	_, err := f.svc.Create(ctx, other.ID, CreateRequest{
		SalonID:   f.salon.ID,
		ServiceID: f.service.ID,
		StartAt:   time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)

	mine, err := f.svc.ListForClient(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1, "another client's bookings leaked")
	assert.Equal(t, f.service.ID, mine[0].Service.ID, "service wasn't preloaded")

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
