package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, room string) *Client {
	return &Client{
		hub:  hub,
		room: room,
		send: make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	room := shopRoom(uuid.New())
	client := mockClient(hub, room)

	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[room] == nil {
		t.Fatal("room not created")
	}
	if !hub.rooms[room][client] {
		t.Fatal("client not registered in room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	room := shopRoom(uuid.New())
	client := mockClient(hub, room)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[room] != nil {
		t.Fatal("room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleShop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	shop1 := uuid.New()
	shop2 := uuid.New()

	client1 := mockClient(hub, shopRoom(shop1))
	client2 := mockClient(hub, shopRoom(shop2))

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"order_id":"test-123"}`)
	hub.BroadcastToShop(shop1, Event{Type: "order.created", Payload: testPayload})

	// client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order.created" {
			t.Errorf("expected type 'order.created', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different shop")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToDriversReachesAllDrivers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	driver1 := mockClient(hub, driversRoom)
	driver2 := mockClient(hub, driversRoom)
	merchant := mockClient(hub, shopRoom(uuid.New()))

	hub.register <- driver1
	hub.register <- driver2
	hub.register <- merchant
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToDrivers(Event{
		Type:    "order.available",
		Payload: json.RawMessage(`{"order_id":"abc"}`),
	})

	for i, client := range []*Client{driver1, driver2} {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("driver%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order.available" {
				t.Errorf("driver%d: expected type 'order.available', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("driver%d did not receive message", i+1)
		}
	}

	// The merchant's shop feed must stay quiet.
	select {
	case <-merchant.send:
		t.Fatal("shop client should not receive driver broadcasts")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestBroadcastToMultipleClientsInSameShop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	room := shopRoom(uuid.New())
	client1 := mockClient(hub, room)
	client2 := mockClient(hub, room)
	client3 := mockClient(hub, room)

	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	hub.broadcast <- &roomEvent{
		Room:  room,
		Event: Event{Type: "order.updated", Payload: json.RawMessage(`{"status":"preparing"}`)},
	}

	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order.updated" {
				t.Errorf("client%d: expected type 'order.updated', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestNewEvent(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}

	event, err := NewEvent("order.updated", payload{OrderID: "abc", Status: "confirmed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != "order.updated" {
		t.Errorf("type: got %s, want order.updated", event.Type)
	}

	var decoded payload
	if err := json.Unmarshal(event.Payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.OrderID != "abc" || decoded.Status != "confirmed" {
		t.Errorf("payload round-trip: got %+v", decoded)
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	room := shopRoom(uuid.New())
	client1 := mockClient(hub, room)
	client2 := mockClient(hub, room)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[room]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[room]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[room]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[room]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[room] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToShopWithNoListeners(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, shopRoom(uuid.New()))
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Broadcast to a shop nobody is watching.
	hub.BroadcastToShop(uuid.New(), Event{
		Type:    "order.created",
		Payload: json.RawMessage(`{"test":"data"}`),
	})

	select {
	case <-client.send:
		t.Fatal("client should not receive message for different shop")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
