package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const activityChannel = "activity"

// Event is one entry in a project's activity stream.
type Event struct {
	Type      string    `json:"type"` // project.created, file.uploaded, ...
	ProjectID uuid.UUID `json:"project_id"`
	ActorID   uuid.UUID `json:"actor_id"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier fans activity out to the project's owner and client, both over
// the in-process hub and a Redis channel for other instances. Delivery is
// best effort and never fails the request that produced the event.
type Notifier struct {
	Hub   *Hub
	Redis *redis.Client
}

func NewNotifier(hub *Hub, rdb *redis.Client) *Notifier {
	return &Notifier{Hub: hub, Redis: rdb}
}

func (n *Notifier) Publish(ctx context.Context, ev Event, ownerID, clientID uuid.UUID) {
	if n == nil {
		return
	}
	ev.At = time.Now().UTC()

	if n.Redis != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			if err := n.Redis.Publish(ctx, activityChannel, payload).Err(); err != nil {
				log.Printf("activity publish failed: %v", err)
			}
		}
	}
	if n.Hub != nil {
		n.Hub.SendToProject(ownerID, clientID, ev)
	}
}
