package attr

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacteristicIsNotifyingTracksSubscribers(t *testing.T) {
	c := NewCharacteristic(MustUUID("2a37"), PropNotify|PropRead, PermReadable, []byte{0x00})
	require.False(t, c.IsNotifying())

	central := uuidFixture(t)
	assert.True(t, c.Subscribe(central))
	assert.True(t, c.IsNotifying())
	assert.False(t, c.Subscribe(central), "subscribing twice should not report a change")

	assert.True(t, c.Unsubscribe(central))
	assert.False(t, c.IsNotifying())
	assert.False(t, c.Unsubscribe(central), "unsubscribing twice should not report a change")
}

func TestServiceChildOrderIsInsertionOrder(t *testing.T) {
	svc := NewService(MustUUID("180d"), true)
	first := NewCharacteristic(MustUUID("2a37"), PropRead, PermReadable, nil)
	second := NewCharacteristic(MustUUID("2a38"), PropRead, PermReadable, nil)
	svc.AddCharacteristic(first)
	svc.AddCharacteristic(second)

	got := svc.Characteristics()
	require.Len(t, got, 2)
	assert.True(t, got[0].UUID.Equal(first.UUID))
	assert.True(t, got[1].UUID.Equal(second.UUID))
	assert.True(t, EqualUUID(first.ServiceUUID, svc.UUID), "characteristic back-reference should be set")
}

func TestDescriptorOrderIsInsertionOrder(t *testing.T) {
	c := NewCharacteristic(MustUUID("2a37"), PropRead, PermReadable, nil)
	d1 := NewDescriptor(MustUUID("2901"), []byte("one"))
	d2 := NewDescriptor(MustUUID("2902"), []byte("two"))
	c.AddDescriptor(d1)
	c.AddDescriptor(d2)

	got := c.Descriptors()
	require.Len(t, got, 2)
	assert.Equal(t, "one", string(got[0].Value()))
	assert.Equal(t, "two", string(got[1].Value()))
}

func TestRecordPassthroughAndIntersection(t *testing.T) {
	hr := MustUUID("180d")
	rec := Record{
		KeyLocalName:    StringValue("HR"),
		KeyServiceUUIDs: UUIDsValue([]UUID{hr}),
	}
	assert.Equal(t, "HR", rec.LocalName())
	assert.True(t, IntersectsUUIDs(rec.ServiceUUIDs(), []UUID{hr}))
	assert.False(t, IntersectsUUIDs(rec.ServiceUUIDs(), []UUID{MustUUID("1811")}))
}

func TestPropertyString(t *testing.T) {
	p := PropRead | PropNotify
	assert.Contains(t, p.String(), "read")
	assert.Contains(t, p.String(), "notify")
	assert.Equal(t, "none", Property(0).String())
}

func uuidFixture(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}
