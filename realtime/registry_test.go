package realtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slotline/slotline-api/models"
)

// fakeConn records frames written to it and can be told to fail
type fakeConn struct {
	frames   []Event
	failWith error
	closed   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.frames = append(f.frames, v.(Event))
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func requester(ref string) models.Actor {
	return models.Actor{Ref: ref, Role: models.RoleRequester}
}

func TestRoomNaming(t *testing.T) {
	assert.Equal(t, "provider-prov1", RoomFor(models.RoleProvider, "prov1"))
	assert.Equal(t, "admin-broadcast", BroadcastRoom(models.RoleAdmin))
}

func TestRegistry_JoinLeave(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", requester("req1"), &fakeConn{})

	r.Join("c1", "requester-req1")
	r.Join("c1", "chat-a-b")
	assert.ElementsMatch(t, []string{"requester-req1", "chat-a-b"}, r.Rooms("c1"))
	assert.Equal(t, 1, r.Subscribers("requester-req1"))

	r.Leave("c1", "chat-a-b")
	assert.ElementsMatch(t, []string{"requester-req1"}, r.Rooms("c1"))
	assert.Equal(t, 0, r.Subscribers("chat-a-b"))
}

func TestRegistry_JoinUnknownSession(t *testing.T) {
	r := NewRegistry()

	r.Join("ghost", "requester-req1")

	assert.Equal(t, 0, r.Subscribers("requester-req1"))
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", requester("req1"), &fakeConn{})
	r.Join("c1", "requester-req1")
	r.Join("c1", "requester-broadcast")

	r.Reset("c1")

	assert.Empty(t, r.Rooms("c1"))
	assert.Equal(t, 0, r.Subscribers("requester-req1"))
	assert.Equal(t, 0, r.Subscribers("requester-broadcast"))

	// the session survives a reset and can join the new role's rooms
	r.Join("c1", "provider-req1")
	assert.Equal(t, 1, r.Subscribers("provider-req1"))
}

func TestRegistry_UnregisterClearsRooms(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", requester("req1"), &fakeConn{})
	r.Register("c2", requester("req2"), &fakeConn{})
	r.Join("c1", "chat-req1-req2")
	r.Join("c2", "chat-req1-req2")

	r.Unregister("c1")

	assert.Equal(t, 1, r.Subscribers("chat-req1-req2"))
	assert.Nil(t, r.Rooms("c1"))
}

func TestRouter_PublishToSubscribers(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r)

	subscribed := &fakeConn{}
	elsewhere := &fakeConn{}
	r.Register("c1", requester("req1"), subscribed)
	r.Register("c2", requester("req2"), elsewhere)
	r.Join("c1", "requester-req1")
	r.Join("c2", "requester-req2")

	router.Publish("requester-req1", "notification", map[string]string{"hello": "there"})

	assert.Len(t, subscribed.frames, 1)
	assert.Equal(t, "notification", subscribed.frames[0].Event)
	assert.Equal(t, "requester-req1", subscribed.frames[0].Room)
	assert.Empty(t, elsewhere.frames)
}

func TestRouter_PublishOrdering(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r)

	conn := &fakeConn{}
	r.Register("c1", requester("req1"), conn)
	r.Join("c1", "requester-req1")

	router.Publish("requester-req1", "first", nil)
	router.Publish("requester-req1", "second", nil)
	router.Publish("requester-req1", "third", nil)

	assert.Equal(t, []string{"first", "second", "third"}, []string{
		conn.frames[0].Event, conn.frames[1].Event, conn.frames[2].Event,
	})
}

func TestRouter_PublishEmptyRoom(t *testing.T) {
	router := NewRouter(NewRegistry())

	// nobody listening is not an error
	router.Publish("requester-nobody", "notification", nil)
}

func TestRouter_FailedWriteDropsConnection(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r)

	healthy := &fakeConn{}
	broken := &fakeConn{failWith: errors.New("mocked-error")}
	r.Register("c1", requester("req1"), healthy)
	r.Register("c2", requester("req1"), broken)
	r.Join("c1", "requester-req1")
	r.Join("c2", "requester-req1")

	router.Publish("requester-req1", "notification", nil)

	assert.Len(t, healthy.frames, 1)
	assert.True(t, broken.closed)
	assert.Equal(t, 1, r.Subscribers("requester-req1"))
	assert.Nil(t, r.Rooms("c2"))
}
