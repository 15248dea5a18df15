package warehouse

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parcelhub-backend/internal/hubs"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/internal/pricing"
	"github.com/angelmondragon/parcelhub-backend/internal/users"
	"github.com/angelmondragon/parcelhub-backend/pkg/config"
	"github.com/angelmondragon/parcelhub-backend/pkg/db"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

type fixture struct {
	desk      Service
	orders    orders.Service
	orderRepo orders.Repository
	userRepo  *users.Repository
	hubID     uuid.UUID
	staff     orders.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	quoter, err := pricing.NewService(pricing.NewRepository(conn))
	require.NoError(t, err)
	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orderRepo, db.FromGorm(conn), outbox.NewService(outbox.NewRepository(conn), nil), quoter, nil, logg)
	require.NoError(t, err)

	hubSvc, err := hubs.NewService(hubs.NewRepository(conn))
	require.NoError(t, err)
	hub, err := hubSvc.CreateHub(context.Background(), hubs.HubInput{Code: "HCM1", Name: "Saigon 1", Address: "1 Nguyen Hue"})
	require.NoError(t, err)

	userRepo := users.NewRepository(conn)
	userSvc, err := users.NewService(userRepo, config.PasswordConfig{}, logg)
	require.NoError(t, err)

	desk, err := NewService(orderSvc, hubSvc, userSvc, logg)
	require.NoError(t, err)

	return fixture{
		desk:      desk,
		orders:    orderSvc,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		hubID:     hub.ID,
		staff:     orders.Actor{UserID: uuid.New(), Role: enums.RoleIntakeStaff},
	}
}

func (f fixture) placeProcessing(t *testing.T) uuid.UUID {
	t.Helper()
	order, err := f.orders.Create(context.Background(), uuid.New(), orders.CreateOrderInput{
		ServiceType:     enums.ServiceTypeStandard,
		PaymentMethod:   enums.PaymentMethodOnline,
		SenderName:      "A",
		SenderPhone:     "0900000001",
		SenderAddress:   "HCM",
		ReceiverName:    "B",
		ReceiverPhone:   "0900000002",
		ReceiverAddress: "Ha Noi",
		Weight:          1.2,
		Items:           []orders.ItemInput{{Description: "Shoes", Quantity: 1, Weight: 1.2}},
	})
	require.NoError(t, err)
	require.NoError(t, f.orderRepo.UpdateFields(context.Background(), order.ID, map[string]any{"status": enums.OrderStatusProcessing}))
	return order.ID
}

func (f fixture) shipper(t *testing.T, status enums.UserStatus) uuid.UUID {
	t.Helper()
	vt := enums.VehicleTypeMotorbike
	user, err := f.userRepo.Create(context.Background(), users.CreateUserDTO{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FullName:     "Rider",
		Role:         enums.RoleShipper,
		Status:       status,
		VehicleType:  &vt,
	})
	require.NoError(t, err)
	return user.ID
}

func TestIntakeClassifyAssignFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeProcessing(t)
	shipperID := f.shipper(t, enums.UserStatusApproved)

	received, err := f.desk.Intake(ctx, f.staff, orderID, IntakeInput{WarehouseID: f.hubID, Weight: 1.4})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReceivedAtWarehouse, received.Status)
	require.NotNil(t, received.WarehouseID)
	assert.Equal(t, f.hubID, *received.WarehouseID)
	require.NotNil(t, received.MeasuredWeight)
	assert.Equal(t, 1.4, *received.MeasuredWeight)

	classified, err := f.desk.Classify(ctx, f.staff, orderID, ClassifyInput{PackageSize: enums.PackageSizeSmall})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusClassified, classified.Status)

	assigned, err := f.desk.Assign(ctx, f.staff, orderID, AssignInput{ShipperID: shipperID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.ShipperID)
	assert.Equal(t, shipperID, *assigned.ShipperID)
	require.NotNil(t, assigned.VehicleType)
	assert.Equal(t, enums.VehicleTypeMotorbike, *assigned.VehicleType)

	history, err := f.orderRepo.ListHistory(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestStepsEnforceSourceStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeProcessing(t)
	admin := orders.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	_, err := f.desk.Classify(ctx, admin, orderID, ClassifyInput{PackageSize: enums.PackageSizeSmall})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.desk.Assign(ctx, f.staff, orderID, AssignInput{ShipperID: f.shipper(t, enums.UserStatusApproved)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestAssignRejectsUnapprovedShipper(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeProcessing(t)
	require.NoError(t, f.orderRepo.UpdateFields(ctx, orderID, map[string]any{"status": enums.OrderStatusClassified}))

	_, err := f.desk.Assign(ctx, f.staff, orderID, AssignInput{ShipperID: f.shipper(t, enums.UserStatusPending)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestIntakeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeProcessing(t)

	_, err := f.desk.Intake(ctx, f.staff, orderID, IntakeInput{WarehouseID: uuid.New(), Weight: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.desk.Intake(ctx, f.staff, orderID, IntakeInput{WarehouseID: f.hubID, Weight: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	customer := orders.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	_, err = f.desk.Intake(ctx, customer, orderID, IntakeInput{WarehouseID: f.hubID, Weight: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestQueueDefaultsToDeskStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	processing := f.placeProcessing(t)
	delivered := f.placeProcessing(t)
	require.NoError(t, f.orderRepo.UpdateFields(ctx, delivered, map[string]any{"status": enums.OrderStatusDelivered}))

	page, err := f.desk.Queue(ctx, f.staff, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, processing, page.Items[0].ID)
}
