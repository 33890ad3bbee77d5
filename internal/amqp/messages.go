package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeMessage announces that an owner's expenses changed in some months.
// An empty Months list means every month of the owner.
type ChangeMessage struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Months    []string  `json:"months"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(origin, ownerID string, months []string) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Months:    months,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects those without an owner.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, fmt.Errorf("change message %s has no owner", msg.ID)
	}
	return &msg, nil
}
