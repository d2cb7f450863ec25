package notifications

import (
	"testing"
	"time"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/models"
	"github.com/bitcr/pocketd/repo"
)

func TestNotifier(t *testing.T) {
	bus := events.NewBus()
	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	out := make(chan interface{})
	notifFunc := func(i interface{}) error {
		out <- i
		return nil
	}

	sub, err := bus.Subscribe(&notifierStarted{})
	if err != nil {
		t.Fatal(err)
	}

	notifier := NewNotifier(bus, db, notifFunc)
	go notifier.Start()
	defer notifier.Stop()

	select {
	case <-sub.Out():
	case <-time.After(time.Second * 10):
		t.Fatal("Timed out waiting on channel")
	}

	tests := []interface{}{
		&events.WalletAddedNotification{},
		&events.PaymentSentNotification{},
		&events.PaymentReceivedNotification{},
		&events.TokenSentNotification{},
		&events.TokenReceivedNotification{},
		&events.CreditRedeemedNotification{},
		&events.FundsReclaimedNotification{},
	}

	for _, test := range tests {

		bus.Emit(test)

		select {
		case n1 := <-out:
			wrapper, ok := n1.(notificationWrapper)
			if !ok {
				t.Fatal("Invalid notification type")
			}

			if wrapper.Notification != test {
				t.Errorf("Failed to return expected event")
			}
		case <-time.After(time.Second * 10):
			t.Fatal("Timed out waiting on channel")
		}
	}

	var records []models.NotificationRecord
	err = db.View(func(tx database.Tx) error {
		return tx.Read().Find(&records).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(tests) {
		t.Errorf("Expected %d saved notifications, got %d", len(tests), len(records))
	}
	for _, record := range records {
		if _, err := record.Notification(); err != nil {
			t.Errorf("Failed to deserialize notification %s: %s", record.Type, err)
		}
	}
}
