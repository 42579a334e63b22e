package whatsapp

import (
	"context"
	"testing"

	"tubecast/pkg/logger"
)

func registryFixture() (*Registry, map[string]*fakeTransport) {
	transports := map[string]*fakeTransport{}
	factory := func(userID string) *Session {
		transport := &fakeTransport{}
		transports[userID] = transport
		return NewSession(userID, transport, &fakeStore{}, &fakeSource{}, &fakeSink{}, Options{}, logger.New("error"))
	}
	return NewRegistry(factory), transports
}

func TestRegistryOneSessionPerUser(t *testing.T) {
	registry, _ := registryFixture()

	first := registry.CreateOrReplace("u1")
	second := registry.CreateOrReplace("u2")

	if first == second {
		t.Fatal("distinct users share a session")
	}
	if got, ok := registry.Get("u1"); !ok || got != first {
		t.Errorf("Get(u1) = %p, want %p", got, first)
	}
	if _, ok := registry.Get("missing"); ok {
		t.Error("Get(missing) reported a session")
	}
}

func TestRegistryReplaceShutsDownOldSession(t *testing.T) {
	registry, transports := registryFixture()

	first := registry.CreateOrReplace("u1")
	if err := first.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	transports["u1"].fire(OpenEvent{})
	oldTransport := transports["u1"]

	second := registry.CreateOrReplace("u1")

	if first == second {
		t.Fatal("replace returned the old session")
	}
	if got, _ := registry.Get("u1"); got != second {
		t.Error("registry still holds the old session")
	}
	if oldTransport.disconnects == 0 {
		t.Error("old session was not shut down on replace")
	}
	if oldTransport.purges != 0 {
		t.Error("replace must not purge credentials")
	}
}

func TestRegistryRemove(t *testing.T) {
	registry, _ := registryFixture()

	registry.CreateOrReplace("u1")
	registry.Remove("u1")

	if _, ok := registry.Get("u1"); ok {
		t.Error("session survived Remove")
	}
}

func TestRegistryConnectedSessions(t *testing.T) {
	registry, transports := registryFixture()

	connected := registry.CreateOrReplace("u1")
	registry.CreateOrReplace("u2")

	if err := connected.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	transports["u1"].fire(OpenEvent{})

	live := registry.ConnectedSessions()
	if len(live) != 1 {
		t.Fatalf("connected sessions = %d, want 1", len(live))
	}
	if live["u1"] != connected {
		t.Error("connected snapshot holds the wrong session")
	}
}

func TestRegistryShutdownReleasesAll(t *testing.T) {
	registry, transports := registryFixture()

	for _, id := range []string{"u1", "u2"} {
		session := registry.CreateOrReplace(id)
		if err := session.Connect(context.Background()); err != nil {
			t.Fatalf("Connect(%s): %v", id, err)
		}
		transports[id].fire(OpenEvent{})
	}

	registry.Shutdown()

	for id, transport := range transports {
		if transport.disconnects == 0 {
			t.Errorf("session %s not released on shutdown", id)
		}
		if transport.purges != 0 {
			t.Errorf("session %s credentials purged on shutdown", id)
		}
	}
}
