package notifications

import (
	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/models"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("notif")

type notificationWrapper struct {
	Notification interface{} `json:"notification"`
}

// notifierStarted is emitted on the bus once the notifier has
// subscribed and is ready to relay events. Used by tests to avoid
// racing the subscription.
type notifierStarted struct{}

func init() {
	models.RegisterNotificationType("WalletAddedNotification", func() models.TypedNotification { return &events.WalletAddedNotification{} })
	models.RegisterNotificationType("PaymentSentNotification", func() models.TypedNotification { return &events.PaymentSentNotification{} })
	models.RegisterNotificationType("PaymentReceivedNotification", func() models.TypedNotification { return &events.PaymentReceivedNotification{} })
	models.RegisterNotificationType("TokenSentNotification", func() models.TypedNotification { return &events.TokenSentNotification{} })
	models.RegisterNotificationType("TokenReceivedNotification", func() models.TypedNotification { return &events.TokenReceivedNotification{} })
	models.RegisterNotificationType("CreditRedeemedNotification", func() models.TypedNotification { return &events.CreditRedeemedNotification{} })
	models.RegisterNotificationType("FundsReclaimedNotification", func() models.TypedNotification { return &events.FundsReclaimedNotification{} })
}

// Notifier manages translating events into notifications and
// sending them to websockets.
type Notifier struct {
	notifyFunc func(interface{}) error
	bus        events.Bus
	db         database.Database
	shutdown   chan struct{}
}

// NewNotifier returns a new notifer.
func NewNotifier(bus events.Bus, db database.Database, notifyFunc func(interface{}) error) *Notifier {
	return &Notifier{
		bus:        bus,
		db:         db,
		notifyFunc: notifyFunc,
		shutdown:   make(chan struct{}),
	}
}

// Start will start up the notifier. This should use it's own goroutine.
func (n *Notifier) Start() {
	notifications := []interface{}{
		&events.WalletAddedNotification{},
		&events.PaymentSentNotification{},
		&events.PaymentReceivedNotification{},
		&events.TokenSentNotification{},
		&events.TokenReceivedNotification{},
		&events.CreditRedeemedNotification{},
		&events.FundsReclaimedNotification{},
	}

	notificationSub, err := n.bus.Subscribe(notifications)
	if err != nil {
		log.Errorf("Error subscribing to events: %s", err)
	}

	n.bus.Emit(&notifierStarted{})

	for {
		select {
		case event := <-notificationSub.Out():
			notification, ok := event.(models.TypedNotification)
			if !ok {
				log.Errorf("Received event of unexpected type %T", event)
				continue
			}

			record, err := models.NewNotificationRecord(notification)
			if err != nil {
				log.Errorf("Error serializing notification: %s", err)
				continue
			}

			err = n.db.Update(func(tx database.Tx) error {
				return tx.Save(record)
			})
			if err != nil {
				log.Errorf("Error saving notification to the database: %s", err)
				continue
			}

			if err := n.notifyFunc(notificationWrapper{event}); err != nil {
				log.Errorf("Error sending notification: %s", err)
			}
		case <-n.shutdown:
			return
		}
	}
}

// Stop shuts down the notifier.
func (n *Notifier) Stop() {
	close(n.shutdown)
}
