package realtime

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

func testRegistry() *Registry {
	return NewRegistry(logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
}

func TestRegistryRoomsAndUsers(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()
	user := uuid.New()
	a := NewClient(user, enums.RoleCustomer)
	b := NewClient(user, enums.RoleCustomer)
	other := NewClient(uuid.New(), enums.RoleAdmin)
	for _, c := range []*Client{a, b, other} {
		reg.Register(c)
	}
	room := OrderRoom(uuid.New())
	reg.Join(a, room)
	reg.Join(other, room)

	assert.Equal(t, 2, reg.EmitToUser(ctx, user, EventNotification, "hi"))
	assert.Equal(t, 2, reg.EmitToRoom(ctx, room, EventLocationUpdate, map[string]float64{"lat": 1}))

	evt := <-a.Outbound()
	assert.Equal(t, EventNotification, evt.Name)
	evt = <-a.Outbound()
	assert.Equal(t, EventLocationUpdate, evt.Name)
	assert.Equal(t, room, evt.Room)

	reg.Leave(other, room)
	assert.Equal(t, 1, reg.EmitToRoom(ctx, room, EventLocationUpdate, nil))
}

func TestRegistryDeregisterClosesAndCleansUp(t *testing.T) {
	reg := testRegistry()
	c := NewClient(uuid.New(), enums.RoleShipper)
	reg.Register(c)
	room := OrderRoom(uuid.New())
	reg.Join(c, room)

	reg.Deregister(c)
	reg.Deregister(c)

	_, open := <-c.Outbound()
	assert.False(t, open)
	assert.Equal(t, 0, reg.Connections())
	assert.Equal(t, 0, reg.EmitToRoom(context.Background(), room, EventLocationUpdate, nil))
	assert.Empty(t, reg.rooms)
	assert.Empty(t, reg.users)

	reg.Join(c, room)
	assert.Empty(t, reg.rooms)
}

func TestRegistryDropsWhenQueueFull(t *testing.T) {
	reg := testRegistry()
	c := NewClient(uuid.New(), enums.RoleCustomer)
	reg.Register(c)

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, reg.EmitToUser(context.Background(), c.UserID, EventNotification, i))
	}
	assert.Equal(t, 0, reg.EmitToUser(context.Background(), c.UserID, EventNotification, "overflow"))
}

func TestParseOrderRoom(t *testing.T) {
	id := uuid.New()
	parsed, err := ParseOrderRoom(OrderRoom(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseOrderRoom("user-" + id.String())
	assert.Error(t, err)
	_, err = ParseOrderRoom("order-not-a-uuid")
	assert.Error(t, err)
}
