package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/identity"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/metrics"
	"github.com/jordanlanch/prospectroute/pkg/models"
)

// DefaultChannelPrefix prefixes per-user broadcast channels.
const DefaultChannelPrefix = "notifications"

// Persister stores a notification for one recipient
type Persister interface {
	Append(ctx context.Context, userID int, n models.Notification) error
}

// Config configures a Router
type Config struct {
	DesignatedAdminID int
	ChannelPrefix     string
}

// DeliveryReport lists which recipients received a notification.
type DeliveryReport struct {
	Recipients []int `json:"recipients"`
	Delivered  []int `json:"delivered"`
	Failed     []int `json:"failed,omitempty"`
}

// Router fans activity events out to recipients
type Router struct {
	store           Persister
	users           domain.UserDirectory
	broadcaster     domain.Broadcaster
	designatedAdmin int
	prefix          string
	metrics         *metrics.Metrics
	logger          logger.Logger
	now             func() time.Time
}

// NewRouter creates a notification router
func NewRouter(cfg Config, store Persister, users domain.UserDirectory, broadcaster domain.Broadcaster, m *metrics.Metrics, log logger.Logger) *Router {
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = DefaultChannelPrefix
	}
	return &Router{
		store:           store,
		users:           users,
		broadcaster:     broadcaster,
		designatedAdmin: cfg.DesignatedAdminID,
		prefix:          cfg.ChannelPrefix,
		metrics:         m,
		logger:          logger.OrDefault(log),
		now:             time.Now,
	}
}

// Channel returns the broadcast channel for a user
func Channel(prefix string, userID int) string {
	return prefix + ":" + strconv.Itoa(userID)
}

// Message renders the notification text for entry
func Message(authorEmail string, entry models.ActivityLogEntry, prospect *models.Prospect) string {
	return fmt.Sprintf("%s added a %s to %s", authorEmail, entry.Type, prospect.BusinessName)
}

// Notify persists and broadcasts a notification to every recipient of
// author's entry. Failures for one recipient do not stop the others; the
// returned error lists them for the author.
func (r *Router) Notify(ctx context.Context, author identity.Identity, prospect *models.Prospect, entry models.ActivityLogEntry) (DeliveryReport, error) {
	user := &models.User{ID: author.UserID, Email: author.Email, Role: author.Role}
	if author.Role == models.RoleUser {
		stored, err := r.users.GetByID(ctx, author.UserID)
		if err != nil {
			return DeliveryReport{}, fmt.Errorf("failed to resolve author: %w", err)
		}
		user.SupervisorID = stored.SupervisorID
	}

	report := DeliveryReport{
		Recipients: Recipients(user, prospect, r.designatedAdmin),
		Delivered:  []int{},
	}
	msg := Message(author.Email, entry, prospect)

	var errs []error
	for _, recipient := range report.Recipients {
		if err := r.deliver(ctx, recipient, prospect.ID, msg); err != nil {
			r.logger.Error("notification delivery failed",
				"recipient", recipient, "prospect_id", prospect.ID, "error", err)
			report.Failed = append(report.Failed, recipient)
			errs = append(errs, fmt.Errorf("user %d: %w", recipient, err))
			continue
		}
		report.Delivered = append(report.Delivered, recipient)
	}
	r.metrics.RecordNotifications(len(report.Delivered), len(report.Failed))

	if len(errs) > 0 {
		return report, fmt.Errorf("notification not delivered to %d of %d recipients: %w",
			len(errs), len(report.Recipients), errors.Join(errs...))
	}
	return report, nil
}

func (r *Router) deliver(ctx context.Context, recipient, prospectID int, msg string) error {
	n := models.Notification{
		ID:         uuid.NewString(),
		UserID:     recipient,
		Message:    msg,
		ProspectID: prospectID,
		CreatedAt:  r.now().UTC(),
	}
	if err := r.store.Append(ctx, recipient, n); err != nil {
		return err
	}
	signal := models.NotificationSignal{UserID: recipient, ProspectID: prospectID, ID: n.ID}
	if err := r.broadcaster.Publish(ctx, Channel(r.prefix, recipient), signal); err != nil {
		return fmt.Errorf("stored but not broadcast: %w", err)
	}
	return nil
}
