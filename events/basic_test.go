package events

import "testing"

func TestSubscribeAndEmit(t *testing.T) {
	type walletEventA struct{}
	type walletEventB struct{}

	bus := NewBus()

	subA, err := bus.Subscribe(&walletEventA{})
	if err != nil {
		t.Fatal(err)
	}

	subB, err := bus.Subscribe(&walletEventB{})
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		bus.Emit(&walletEventA{})
		bus.Emit(&walletEventB{})
	}()

	evtA := <-subA.Out()
	if _, ok := evtA.(*walletEventA); !ok {
		t.Error("Event is wrong type")
	}

	evtB := <-subB.Out()
	if _, ok := evtB.(*walletEventB); !ok {
		t.Error("Event is wrong type")
	}

	if err := subA.Close(); err != nil {
		t.Error(err)
	}
	if err := subB.Close(); err != nil {
		t.Error(err)
	}
}

func TestSubscribeMultipleTypes(t *testing.T) {
	type walletEventA struct{}
	type walletEventB struct{}

	bus := NewBus()

	sub, err := bus.Subscribe([]interface{}{&walletEventA{}, &walletEventB{}})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	go func() {
		bus.Emit(&walletEventA{})
		bus.Emit(&walletEventB{})
	}()

	if _, ok := (<-sub.Out()).(*walletEventA); !ok {
		t.Error("Event is wrong type")
	}
	if _, ok := (<-sub.Out()).(*walletEventB); !ok {
		t.Error("Event is wrong type")
	}
}

func TestSubscribeNonPointer(t *testing.T) {
	bus := NewBus()
	if _, err := bus.Subscribe(struct{}{}); err == nil {
		t.Error("Expected error subscribing with non-pointer type")
	}
}
