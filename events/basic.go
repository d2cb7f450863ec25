package events

import (
	"errors"
	"reflect"
	"sync"
)

// basicBus delivers events to subscribers keyed on the event's
// concrete type.
type basicBus struct {
	mtx  sync.Mutex
	subs map[reflect.Type][]*sub
}

var _ Bus = (*basicBus)(nil)

// NewBus returns a basic event bus.
func NewBus() Bus {
	return &basicBus{
		subs: make(map[reflect.Type][]*sub),
	}
}

func (b *basicBus) Emit(event interface{}) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	for _, s := range b.subs[reflect.TypeOf(event)] {
		s.ch <- event
	}
}

// Subscribe creates a new subscription. Failing to drain the channel will
// cause publishers to get blocked.
func (b *basicBus) Subscribe(evtTypes interface{}, opts ...SubscriptionOpt) (Subscription, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	settings := subSettingsDefault
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	types, ok := evtTypes.([]interface{})
	if !ok {
		types = []interface{}{evtTypes}
	}

	for _, etyp := range types {
		if reflect.TypeOf(etyp).Kind() != reflect.Ptr {
			return nil, errors.New("subscribe called with non-pointer type")
		}
	}

	out := &sub{
		ch:   make(chan interface{}, settings.buffer),
		drop: b.dropSubscriber,
	}

	for _, etyp := range types {
		typ := reflect.TypeOf(etyp)
		b.subs[typ] = append(b.subs[typ], out)
		out.typs = append(out.typs, typ)
	}

	return out, nil
}

func (b *basicBus) dropSubscriber(typ reflect.Type, s *sub) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	subs := b.subs[typ]
	for i, existing := range subs {
		if existing == s {
			b.subs[typ] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type sub struct {
	ch   chan interface{}
	typs []reflect.Type
	drop func(typ reflect.Type, s *sub)
}

var _ Subscription = (*sub)(nil)

func (s *sub) Out() <-chan interface{} {
	return s.ch
}

func (s *sub) Close() error {
	// Drain the channel in the background so pending publishes
	// unblock before the channel is closed.
	go func() {
		for range s.ch {
		}
	}()

	for _, typ := range s.typs {
		s.drop(typ, s)
	}
	close(s.ch)
	return nil
}
