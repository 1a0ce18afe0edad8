package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []string
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHubPushDeliversToRegisteredUser(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	conn := &fakeConn{}

	hub.Register(userID, conn)

	if !hub.Push(userID, "result-123") {
		t.Fatal("push to online user must succeed")
	}
	if len(conn.messages) != 1 || conn.messages[0] != "result-123" {
		t.Fatalf("unexpected messages: %v", conn.messages)
	}
}

func TestHubPushToOfflineUser(t *testing.T) {
	hub := NewHub()

	if hub.Push(uuid.New(), "payload") {
		t.Fatal("push to offline user must report false")
	}
}

func TestHubRegisterDisplacesOldConn(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	first := &fakeConn{}
	second := &fakeConn{}

	if old := hub.Register(userID, first); old != nil {
		t.Fatal("first register must not displace anything")
	}
	old := hub.Register(userID, second)
	if old != first {
		t.Fatal("second register must return the displaced connection")
	}

	hub.Push(userID, "hello")
	if len(second.messages) != 1 {
		t.Fatal("push must hit the newest connection")
	}
	if len(first.messages) != 0 {
		t.Fatal("displaced connection must not receive messages")
	}
}

func TestHubUnregisterOnlyRemovesOwnConn(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Register(userID, first)
	hub.Register(userID, second)

	// 旧连接的延迟注销不能摘掉新连接
	hub.Unregister(userID, first)
	if hub.Count() != 1 {
		t.Fatal("stale unregister must not remove the new connection")
	}

	hub.Unregister(userID, second)
	if hub.Count() != 0 {
		t.Fatal("expected empty hub")
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			conn := &fakeConn{}
			hub.Register(userID, conn)
			hub.Push(userID, "payload")
			hub.Unregister(userID, conn)
		}()
	}
	wg.Wait()

	if hub.Count() != 0 {
		t.Fatalf("expected empty hub after churn, got %d", hub.Count())
	}
}
