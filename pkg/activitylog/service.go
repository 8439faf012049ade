// Package activitylog maintains the per-prospect activity timeline.
//
// The timeline is stored as a JSON array on the prospect row. Every write is
// a read-modify-write guarded by the row's activity version, retried a few
// times when another writer wins the race.
package activitylog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/identity"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/metrics"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/notification"
	"github.com/jordanlanch/prospectroute/pkg/prospects"
	"github.com/jordanlanch/prospectroute/pkg/storage"
	"github.com/oklog/ulid/v2"
)

const (
	maxAttempts = 3
	// discardTimeout bounds the cleanup of an upload that could not be logged.
	discardTimeout = 10 * time.Second
	// MaxAttachmentBytes caps uploaded attachment size.
	MaxAttachmentBytes = 10 << 20
)

// Store is the subset of the prospect repository the log needs
type Store interface {
	GetByID(ctx context.Context, id int) (*models.Prospect, error)
	ReplaceActivityLog(ctx context.Context, id, expectedVersion int, log []models.ActivityLogEntry, lastContact *time.Time) error
}

// Notifier fans a new entry out to interested users
type Notifier interface {
	Notify(ctx context.Context, author identity.Identity, prospect *models.Prospect, entry models.ActivityLogEntry) (notification.DeliveryReport, error)
}

// Draft is a new text or contact entry
type Draft struct {
	Type    models.EntryType
	Content string
}

// Attachment is an uploaded file to log
type Attachment struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result is the outcome of an append. Warning is set when the entry was
// stored but notifying other users failed.
type Result struct {
	Entry     models.ActivityLogEntry      `json:"entry"`
	NoteCount int                          `json:"note_count"`
	Delivery  *notification.DeliveryReport `json:"delivery,omitempty"`
	Warning   string                       `json:"warning,omitempty"`
}

// Service appends to and edits activity logs
type Service struct {
	store    Store
	storage  domain.ObjectStorage
	notifier Notifier
	metrics  *metrics.Metrics
	logger   logger.Logger
	now      func() time.Time

	entropyMu sync.Mutex
	entropy   io.Reader
}

// NewService creates an activity log service. storage and notifier may be nil,
// in which case attachments are rejected and nobody is notified.
func NewService(store Store, objects domain.ObjectStorage, notifier Notifier, m *metrics.Metrics, log logger.Logger) *Service {
	return &Service{
		store:    store,
		storage:  objects,
		notifier: notifier,
		metrics:  m,
		logger:   logger.OrDefault(log),
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *Service) newID(at time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

func (s *Service) newEntry(author identity.Identity, typ models.EntryType, content string) models.ActivityLogEntry {
	now := s.now().UTC()
	return models.ActivityLogEntry{
		ID:        s.newID(now),
		Type:      typ,
		Content:   content,
		Timestamp: now,
		UserID:    author.UserID,
		UserEmail: author.Email,
		UserType:  author.Role,
	}
}

// mutate applies edit to the current log and writes it back, retrying on
// version conflicts.
func (s *Service) mutate(ctx context.Context, prospectID int, edit func(p *models.Prospect) ([]models.ActivityLogEntry, *time.Time, error)) (*models.Prospect, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err := s.store.GetByID(ctx, prospectID)
		if err != nil {
			return nil, err
		}
		log, lastContact, err := edit(p)
		if err != nil {
			return nil, err
		}

		err = s.store.ReplaceActivityLog(ctx, p.ID, p.Version, log, lastContact)
		if err == nil {
			p.ActivityLog = log
			p.Version++
			if lastContact != nil {
				p.LastContact = lastContact
			}
			return p, nil
		}
		if !errors.Is(err, prospects.ErrVersionConflict) {
			return nil, err
		}
		s.logger.Debug("activity log version conflict", "prospect_id", prospectID, "attempt", attempt)
	}
	return nil, domain.NewConflictError("activity log was changed by someone else, please retry")
}

// AppendEntry adds a note or contact entry. Contact entries also move the
// prospect's last contact time.
func (s *Service) AppendEntry(ctx context.Context, author identity.Identity, prospectID int, draft Draft) (*Result, error) {
	if !draft.Type.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid entry type %q", draft.Type))
	}
	if draft.Type == models.EntryFile || draft.Type == models.EntryImage {
		return nil, domain.NewValidationError("file and image entries must be uploaded as attachments")
	}
	content := strings.TrimSpace(draft.Content)
	if content == "" {
		return nil, domain.NewValidationError("content is required")
	}

	return s.append(ctx, author, prospectID, s.newEntry(author, draft.Type, content))
}

// AppendAttachment uploads the file and then logs it. Nothing is logged when
// the upload fails, and the upload is removed again when logging fails.
func (s *Service) AppendAttachment(ctx context.Context, author identity.Identity, prospectID int, file Attachment) (*Result, error) {
	if s.storage == nil {
		return nil, domain.NewUploadError(errors.New("object storage is not configured"))
	}
	name := strings.TrimSpace(file.FileName)
	if name == "" || file.Body == nil {
		return nil, domain.NewValidationError("file is required")
	}
	if file.Size > MaxAttachmentBytes {
		return nil, domain.NewValidationError(fmt.Sprintf("file exceeds %d MB", MaxAttachmentBytes>>20))
	}
	if _, err := s.store.GetByID(ctx, prospectID); err != nil {
		return nil, err
	}

	key := storage.AttachmentKey(prospectID, name, s.now())
	url, err := s.storage.Upload(ctx, key, file.Body, file.ContentType)
	if err != nil {
		s.logger.Error("attachment upload failed", "prospect_id", prospectID, "file", name, "error", err)
		return nil, domain.NewUploadError(err)
	}

	typ := models.EntryFile
	if strings.HasPrefix(strings.ToLower(file.ContentType), "image/") {
		typ = models.EntryImage
	}
	entry := s.newEntry(author, typ, name)
	entry.FileURL = url
	entry.FileName = name

	res, err := s.append(ctx, author, prospectID, entry)
	if err != nil {
		s.discardUpload(ctx, prospectID, key)
		return nil, err
	}
	return res, nil
}

// discardUpload deletes an object no entry points to. It still runs when ctx
// was cancelled; a failure leaves the key in the log for manual cleanup.
func (s *Service) discardUpload(ctx context.Context, prospectID int, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("orphaned attachment left in storage", "prospect_id", prospectID, "key", key, "error", err)
	}
}

func (s *Service) append(ctx context.Context, author identity.Identity, prospectID int, entry models.ActivityLogEntry) (*Result, error) {
	p, err := s.mutate(ctx, prospectID, func(p *models.Prospect) ([]models.ActivityLogEntry, *time.Time, error) {
		var lastContact *time.Time
		if entry.Type.IsContact() {
			ts := entry.Timestamp
			lastContact = &ts
		}
		return append(p.ActivityLog, entry), lastContact, nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordActivityEntry(string(entry.Type))

	res := &Result{Entry: entry, NoteCount: NoteCount(p.ActivityLog)}
	if entry.Type.Notifies() && s.notifier != nil {
		report, err := s.notifier.Notify(ctx, author, p, entry)
		if err != nil {
			s.logger.Warn("activity entry saved without full notification", "prospect_id", p.ID, "entry_id", entry.ID, "error", err)
			res.Warning = "Entry saved, but notifying your team failed"
		}
		res.Delivery = &report
	}
	return res, nil
}

var errEntryMissing = errors.New("entry not found")

// UpdateLikes sets the like count of one entry. key is the entry id; entries
// written before ids existed are matched by their exact RFC 3339 timestamp.
// It reports false when the prospect or entry does not exist.
func (s *Service) UpdateLikes(ctx context.Context, prospectID int, key string, count int) (bool, error) {
	if count < 0 {
		return false, domain.NewValidationError("likes cannot be negative")
	}

	_, err := s.mutate(ctx, prospectID, func(p *models.Prospect) ([]models.ActivityLogEntry, *time.Time, error) {
		log := cloneLog(p.ActivityLog)
		target := findEntry(log, key)
		if target == nil {
			return nil, nil, errEntryMissing
		}
		target.Likes = count
		return log, nil, nil
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errEntryMissing), domain.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// AddReply appends a reply under the entry identified by parentKey.
func (s *Service) AddReply(ctx context.Context, author identity.Identity, prospectID int, parentKey, content string) (*models.ActivityLogEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.NewValidationError("content is required")
	}
	reply := s.newEntry(author, models.EntryNote, content)

	_, err := s.mutate(ctx, prospectID, func(p *models.Prospect) ([]models.ActivityLogEntry, *time.Time, error) {
		log := cloneLog(p.ActivityLog)
		parent := findEntry(log, parentKey)
		if parent == nil {
			return nil, nil, domain.NewNotFoundError("activity entry")
		}
		parent.Replies = append(parent.Replies, reply)
		return log, nil, nil
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// List returns a prospect's log in append order.
func (s *Service) List(ctx context.Context, prospectID int) ([]models.ActivityLogEntry, error) {
	p, err := s.store.GetByID(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	return p.ActivityLog, nil
}

// NoteCount counts top-level note entries.
func NoteCount(log []models.ActivityLogEntry) int {
	n := 0
	for _, e := range log {
		if e.Type == models.EntryNote {
			n++
		}
	}
	return n
}

func cloneLog(log []models.ActivityLogEntry) []models.ActivityLogEntry {
	out := make([]models.ActivityLogEntry, len(log))
	for i, e := range log {
		if len(e.Replies) > 0 {
			e.Replies = cloneLog(e.Replies)
		}
		out[i] = e
	}
	return out
}

// findEntry searches entries and their replies.
func findEntry(log []models.ActivityLogEntry, key string) *models.ActivityLogEntry {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	ts, tsErr := time.Parse(time.RFC3339Nano, key)

	for i := range log {
		e := &log[i]
		if e.ID != "" && e.ID == key {
			return e
		}
		if e.ID == "" && tsErr == nil && e.Timestamp.Equal(ts) {
			return e
		}
		if found := findEntry(e.Replies, key); found != nil {
			return found
		}
	}
	return nil
}
