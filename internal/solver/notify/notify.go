// Package notify publishes a PostgreSQL NOTIFY on the "solve_completed"
// channel after a run is recorded, so any number of external listeners
// (the UI's live dashboard, an ops tool) can react without polling the
// audit table. This only applies in PostgreSQL deployments; SQLite local
// mode has no equivalent and Notifier is simply left unused there.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/database"
	"github.com/kilgorjn/patient-scheduling/internal/solver/audit"
)

// Channel is the LISTEN/NOTIFY channel name solve completions are published on.
const Channel = "solve_completed"

// Notifier wraps a pq.Listener bound to Channel.
type Notifier struct {
	listener *pq.Listener
	logger   *slog.Logger
}

// NewNotifier opens a pq.Listener against connStr and subscribes to Channel.
func NewNotifier(connStr string, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("postgres listener event", "event", ev, "error", err)
		}
	}
	listener := pq.NewListener(connStr, 10*time.Second, time.Minute, reportProblem)
	if err := listener.Listen(Channel); err != nil {
		return nil, err
	}
	return &Notifier{listener: listener, logger: logger}, nil
}

// payload is the JSON body delivered with each notification.
type payload struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint"`
}

// Payload builds the JSON body (run_id, status, fingerprint) that Publish
// sends on Channel for a recorded run.
func Payload(run *audit.Run) ([]byte, error) {
	return json.Marshal(payload{
		RunID:       run.ID.String(),
		Status:      string(run.Status),
		Fingerprint: run.Fingerprint,
	})
}

// Publish issues a pg_notify on Channel for the given run over conn. conn
// must be a PostgreSQL connection; callers only invoke this in that mode.
func Publish(ctx context.Context, conn database.Connection, run *audit.Run) error {
	body, err := Payload(run)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, string(body))
	return err
}

// Notifications returns the channel of incoming notifications. Callers range
// over it until Close is called.
func (n *Notifier) Notifications() <-chan *pq.Notification {
	return n.listener.Notify
}

// Close stops listening.
func (n *Notifier) Close() error {
	return n.listener.Close()
}

// WaitForNext blocks until the next notification or ctx is done.
func (n *Notifier) WaitForNext(ctx context.Context) (*pq.Notification, error) {
	select {
	case notice := <-n.listener.Notify:
		return notice, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
