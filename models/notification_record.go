package models

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// TypedNotification contains a single method which allows
// us to get the type of the notification. All notifications
// should implement this.
type TypedNotification interface {
	// Type returns the type of the notification.
	Type() string
}

// NotificationRecord encapsulates a single notification with additional
// metadata. The actual notification is serialized as JSON so as to
// make this model suitable for the database. It may also be sent over
// the websocket API in this format.
type NotificationRecord struct {
	ID         string          `gorm:"primary_key" json:"-"`
	Timestamp  time.Time       `json:"timestamp"`
	IsRead     bool            `json:"read"`
	Serialized json.RawMessage `json:"notification"`
	Type       string          `json:"type"`
}

// NewNotificationRecord takes in a notification and returns a new NotificationRecord
// with a new ID and timestamp.
func NewNotificationRecord(notification TypedNotification) (*NotificationRecord, error) {
	out, err := json.MarshalIndent(notification, "", "    ")
	if err != nil {
		return nil, err
	}

	return &NotificationRecord{
		ID:         newNotificationID(),
		Timestamp:  time.Now(),
		Type:       notification.Type(),
		Serialized: out,
	}, nil
}

// Notification deserializes the record back into its typed form. The
// registry of constructors lives in the notifications package which
// registers itself at init.
func (n *NotificationRecord) Notification() (TypedNotification, error) {
	ctor, ok := notificationMap[n.Type]
	if !ok {
		return nil, fmt.Errorf("unknown notification type: %s", n.Type)
	}
	notif := ctor()
	if err := json.Unmarshal(n.Serialized, notif); err != nil {
		return nil, err
	}
	return notif, nil
}

func newNotificationID() string {
	r := make([]byte, 20)
	rand.Read(r)
	return base64.StdEncoding.EncodeToString(r)
}

var notificationMap = map[string]func() TypedNotification{}

// RegisterNotificationType makes a notification type available for
// deserialization out of the database.
func RegisterNotificationType(typ string, ctor func() TypedNotification) {
	notificationMap[typ] = ctor
}
