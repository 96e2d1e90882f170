package notify

import (
	"context"
	"log"
	"time"
)

// Notification kinds emitted after successful ledger transitions.
const (
	KindCreated     = "created"
	KindCompleted   = "completed"
	KindCancelled   = "cancelled"
	KindRescheduled = "rescheduled"
)

type Event struct {
	Kind         string    `json:"kind"`
	MemberID     int64     `json:"member_id"`
	TrainerID    int64     `json:"trainer_id"`
	ShopID       int64     `json:"shop_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	BalanceAfter int       `json:"balance_after"`
}

// Notifier is a no-throw port: implementations must swallow their own
// failures. A ledger transition never fails because its notification did.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// LogNotifier is the fallback gateway used when no hub is wired up.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event Event) {
	log.Printf(
		"notify %s: member=%d trainer=%d shop=%d scheduled_at=%s balance=%d",
		event.Kind,
		event.MemberID,
		event.TrainerID,
		event.ShopID,
		event.ScheduledAt.Format(time.RFC3339),
		event.BalanceAfter,
	)
}
