package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Change kinds carried by LedgerChangedMessage.
const (
	ChangeAdd    = "add"
	ChangeRemove = "remove"
	ChangeClear  = "clear"
)

// LedgerChangedMessage announces that the persisted ledger was replaced.
// It does not carry the records; consumers reload the snapshot from the
// shared slot. Revision grows with every mutation of one server process.
type LedgerChangedMessage struct {
	Change    string    `json:"change"`
	ID        string    `json:"id,omitempty"`
	Count     int       `json:"count"`
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message stamped with the current time.
func NewLedgerChangedMessage(change, id string, count int, revision int64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Change:    change,
		ID:        id,
		Count:     count,
		Revision:  revision,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and checks a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Change {
	case ChangeAdd, ChangeRemove, ChangeClear:
	case "":
		return nil, errors.New("missing change kind")
	default:
		return nil, fmt.Errorf("unknown change kind %q", msg.Change)
	}
	if msg.Count < 0 {
		return nil, fmt.Errorf("negative ledger size %d", msg.Count)
	}
	return &msg, nil
}
