package activitylog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/database/dbtest"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/identity"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/jordanlanch/prospectroute/pkg/notification"
	"github.com/jordanlanch/prospectroute/pkg/prospects"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	err       error
	deleteErr error
	keys      []string
	types     []string
	contents  []string
	deleted   []string
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

func (f *fakeStorage) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, _ := io.ReadAll(body)
	f.keys = append(f.keys, key)
	f.types = append(f.types, contentType)
	f.contents = append(f.contents, string(data))
	return "https://files.test/" + key, nil
}

type fakeNotifier struct {
	err     error
	entries []models.ActivityLogEntry
}

func (f *fakeNotifier) Notify(_ context.Context, _ identity.Identity, _ *models.Prospect, entry models.ActivityLogEntry) (notification.DeliveryReport, error) {
	f.entries = append(f.entries, entry)
	if f.err != nil {
		return notification.DeliveryReport{Recipients: []int{2}, Delivered: []int{}, Failed: []int{2}}, f.err
	}
	return notification.DeliveryReport{Recipients: []int{2}, Delivered: []int{2}}, nil
}

type fixture struct {
	svc      *Service
	repo     *prospects.Repository
	storage  *fakeStorage
	notifier *fakeNotifier
	author   identity.Identity
	prospect int
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "rep@test.com", "user", nil)
	repo := prospects.NewRepository(db)
	p, err := repo.Create(context.Background(), &models.Prospect{UserID: owner, BusinessName: "Acme Tools"})
	require.NoError(t, err)

	st := &fakeStorage{}
	n := &fakeNotifier{}
	return &fixture{
		svc:      NewService(repo, st, n, nil, logger.Discard()),
		repo:     repo,
		storage:  st,
		notifier: n,
		author:   identity.Identity{UserID: owner, Email: "rep@test.com", Role: models.RoleUser},
		prospect: p.ID,
	}
}

func TestAppendEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.AppendEntry(ctx, f.author, f.prospect, Draft{Type: models.EntryNote, Content: "  Left a voicemail  "})
	require.NoError(t, err)

	_, err = ulid.Parse(res.Entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Left a voicemail", res.Entry.Content)
	assert.Equal(t, f.author.UserID, res.Entry.UserID)
	assert.Equal(t, "rep@test.com", res.Entry.UserEmail)
	assert.Equal(t, models.RoleUser, res.Entry.UserType)
	assert.Zero(t, res.Entry.Likes)
	assert.Equal(t, time.UTC, res.Entry.Timestamp.Location())
	assert.Equal(t, 1, res.NoteCount)
	assert.Empty(t, res.Warning)
	require.Len(t, f.notifier.entries, 1)

	p, err := f.repo.GetByID(ctx, f.prospect)
	require.NoError(t, err)
	require.Len(t, p.ActivityLog, 1)
	assert.Equal(t, res.Entry.ID, p.ActivityLog[0].ID)
	assert.Equal(t, 1, p.Version)
	assert.Nil(t, p.LastContact, "notes are not contact")
}

func TestAppendEntry_ContactSetsLastContact(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.AppendEntry(ctx, f.author, f.prospect, Draft{Type: models.EntryCall, Content: "Intro call"})
	require.NoError(t, err)
	assert.Nil(t, res.Delivery, "contact entries do not notify")
	assert.Empty(t, f.notifier.entries)
	assert.Zero(t, res.NoteCount)

	p, err := f.repo.GetByID(ctx, f.prospect)
	require.NoError(t, err)
	require.NotNil(t, p.LastContact)
	assert.WithinDuration(t, res.Entry.Timestamp, *p.LastContact, time.Second)
}

func TestAppendEntry_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for name, draft := range map[string]Draft{
		"unknown type":  {Type: "tweet", Content: "x"},
		"blank content": {Type: models.EntryNote, Content: "   "},
		"file type":     {Type: models.EntryFile, Content: "x"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.AppendEntry(ctx, f.author, f.prospect, draft)
			assert.True(t, domain.IsValidation(err))
		})
	}

	_, err := f.svc.AppendEntry(ctx, f.author, 9999, Draft{Type: models.EntryNote, Content: "x"})
	assert.True(t, domain.IsNotFound(err))
}

func TestAppendEntry_NotificationFailureIsWarning(t *testing.T) {
	f := setup(t)
	f.notifier.err = errors.New("redis down")

	res, err := f.svc.AppendEntry(context.Background(), f.author, f.prospect, Draft{Type: models.EntryNote, Content: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warning)
	require.NotNil(t, res.Delivery)
	assert.Equal(t, []int{2}, res.Delivery.Failed)

	log, err := f.svc.List(context.Background(), f.prospect)
	require.NoError(t, err)
	assert.Len(t, log, 1, "append is kept")
}

func TestUpdateLikes_OnlyTargetChanges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var ids []string
	for _, c := range []string{"one", "two", "three"} {
		res, err := f.svc.AppendEntry(ctx, f.author, f.prospect, Draft{Type: models.EntryNote, Content: c})
		require.NoError(t, err)
		ids = append(ids, res.Entry.ID)
	}

	ok, err := f.svc.UpdateLikes(ctx, f.prospect, ids[1], 4)
	require.NoError(t, err)
	assert.True(t, ok)

	log, err := f.svc.List(ctx, f.prospect)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, 0, log[0].Likes)
	assert.Equal(t, 4, log[1].Likes)
	assert.Equal(t, 0, log[2].Likes)
	assert.Equal(t, "two", log[1].Content)
}

func TestUpdateLikes_Missing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ok, err := f.svc.UpdateLikes(ctx, 9999, "01ARZ3NDEKTSV4RRFFQ69G5FAV", 1)
	require.NoError(t, err)
	assert.False(t, ok, "missing prospect")

	ok, err = f.svc.UpdateLikes(ctx, f.prospect, "01ARZ3NDEKTSV4RRFFQ69G5FAV", 1)
	require.NoError(t, err)
	assert.False(t, ok, "empty log")

	_, err = f.svc.UpdateLikes(ctx, f.prospect, "x", -1)
	assert.True(t, domain.IsValidation(err))
}

func TestUpdateLikes_LegacyTimestampKey(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "rep@test.com", "user", nil)
	repo := prospects.NewRepository(db)
	ctx := context.Background()

	t1 := time.Date(2024, 3, 1, 10, 0, 0, 123000000, time.UTC)
	t2 := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	p, err := repo.Create(ctx, &models.Prospect{
		UserID:       owner,
		BusinessName: "Legacy Co",
		ActivityLog: []models.ActivityLogEntry{
			{Type: models.EntryNote, Content: "a", Timestamp: t1},
			{Type: models.EntryNote, Content: "b", Timestamp: t2},
		},
	})
	require.NoError(t, err)

	svc := NewService(repo, nil, nil, nil, logger.Discard())
	ok, err := svc.UpdateLikes(ctx, p.ID, "2024-03-01T10:00:00.123Z", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	log, err := svc.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, log[0].Likes)
	assert.Equal(t, 0, log[1].Likes)
}

func TestAddReply(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	parent, err := f.svc.AppendEntry(ctx, f.author, f.prospect, Draft{Type: models.EntryNote, Content: "Need pricing"})
	require.NoError(t, err)

	reply, err := f.svc.AddReply(ctx, f.author, f.prospect, parent.Entry.ID, "Sent it over")
	require.NoError(t, err)
	assert.NotEqual(t, parent.Entry.ID, reply.ID)

	log, err := f.svc.List(ctx, f.prospect)
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.Len(t, log[0].Replies, 1)
	assert.Equal(t, "Sent it over", log[0].Replies[0].Content)
	assert.Equal(t, 1, NoteCount(log), "replies are not counted")

	ok, err := f.svc.UpdateLikes(ctx, f.prospect, reply.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.AddReply(ctx, f.author, f.prospect, "nope", "x")
	assert.True(t, domain.IsNotFound(err))
	_, err = f.svc.AddReply(ctx, f.author, f.prospect, parent.Entry.ID, " ")
	assert.True(t, domain.IsValidation(err))
}

func TestAppendAttachment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.AppendAttachment(ctx, f.author, f.prospect, Attachment{
		FileName: "storefront.jpg", ContentType: "image/jpeg", Size: 5, Body: strings.NewReader("jpeg!"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntryImage, res.Entry.Type)
	assert.Equal(t, "storefront.jpg", res.Entry.FileName)
	assert.True(t, strings.HasPrefix(res.Entry.FileURL, "https://files.test/prospects/"))
	assert.Equal(t, []string{"jpeg!"}, f.storage.contents)
	assert.Len(t, f.notifier.entries, 1)

	res, err = f.svc.AppendAttachment(ctx, f.author, f.prospect, Attachment{
		FileName: "quote.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntryFile, res.Entry.Type)
}

func TestAppendAttachment_UploadFailureLeavesNoEntry(t *testing.T) {
	f := setup(t)
	f.storage.err = errors.New("bucket gone")
	ctx := context.Background()

	_, err := f.svc.AppendAttachment(ctx, f.author, f.prospect, Attachment{
		FileName: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x"),
	})
	assert.True(t, domain.IsUploadFailed(err))

	log, err := f.svc.List(ctx, f.prospect)
	require.NoError(t, err)
	assert.Empty(t, log)
	assert.Empty(t, f.notifier.entries)
}

// brokenLogStore accepts reads but fails every log write, optionally
// cancelling the request first.
type brokenLogStore struct {
	*prospects.Repository
	cancel context.CancelFunc
}

func (s brokenLogStore) ReplaceActivityLog(context.Context, int, int, []models.ActivityLogEntry, *time.Time) error {
	if s.cancel != nil {
		s.cancel()
		return context.Canceled
	}
	return errors.New("database is read-only")
}

func TestAppendAttachment_LogFailureRemovesUpload(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The client goes away mid-write; cleanup still runs.
	svc := NewService(brokenLogStore{Repository: f.repo, cancel: cancel}, f.storage, f.notifier, nil, logger.Discard())

	_, err := svc.AppendAttachment(ctx, f.author, f.prospect, Attachment{
		FileName: "menu.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF"),
	})
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, f.storage.keys, 1)
	assert.Equal(t, f.storage.keys, f.storage.deleted)
	assert.Empty(t, f.notifier.entries)
}

func TestAppendAttachment_CleanupFailureLogsKey(t *testing.T) {
	f := setup(t)
	f.storage.deleteErr = errors.New("access denied")
	var logs bytes.Buffer
	svc := NewService(brokenLogStore{Repository: f.repo}, f.storage, f.notifier, nil, logger.NewWithWriter("warn", &logs))

	_, err := svc.AppendAttachment(context.Background(), f.author, f.prospect, Attachment{
		FileName: "menu.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF"),
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "access denied", "the log failure is reported, not the cleanup")

	require.Len(t, f.storage.deleted, 1)
	assert.Contains(t, logs.String(), "orphaned attachment left in storage")
	assert.Contains(t, logs.String(), f.storage.deleted[0])
}

func TestAppendAttachment_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AppendAttachment(ctx, f.author, f.prospect, Attachment{FileName: "", Body: strings.NewReader("x")})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.AppendAttachment(ctx, f.author, f.prospect, Attachment{
		FileName: "big.bin", Size: MaxAttachmentBytes + 1, Body: strings.NewReader("x"),
	})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.AppendAttachment(ctx, f.author, 9999, Attachment{FileName: "a", Body: strings.NewReader("x")})
	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, f.storage.keys, "no upload for a missing prospect")

	noStorage := NewService(f.repo, nil, nil, nil, logger.Discard())
	_, err = noStorage.AppendAttachment(ctx, f.author, f.prospect, Attachment{FileName: "a", Body: strings.NewReader("x")})
	assert.True(t, domain.IsUploadFailed(err))
}

// racingStore lets another writer win the first n version checks.
type racingStore struct {
	*prospects.Repository
	races int
}

func (s *racingStore) ReplaceActivityLog(ctx context.Context, id, version int, log []models.ActivityLogEntry, lc *time.Time) error {
	if s.races > 0 {
		s.races--
		p, err := s.Repository.GetByID(ctx, id)
		if err != nil {
			return err
		}
		intruder := models.ActivityLogEntry{ID: "intruder", Type: models.EntryNote, Content: "concurrent"}
		if err := s.Repository.ReplaceActivityLog(ctx, id, p.Version, append(p.ActivityLog, intruder), nil); err != nil {
			return err
		}
	}
	return s.Repository.ReplaceActivityLog(ctx, id, version, log, lc)
}

func TestAppendEntry_ConcurrentWriterIsNotLost(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store := &racingStore{Repository: f.repo, races: 1}
	svc := NewService(store, nil, nil, nil, logger.Discard())

	_, err := svc.AppendEntry(ctx, f.author, f.prospect, Draft{Type: models.EntryNote, Content: "mine"})
	require.NoError(t, err)

	log, err := svc.List(ctx, f.prospect)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "intruder", log[0].ID)
	assert.Equal(t, "mine", log[1].Content)
}

func TestAppendEntry_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := setup(t)
	store := &racingStore{Repository: f.repo, races: maxAttempts}
	svc := NewService(store, nil, nil, nil, logger.Discard())

	_, err := svc.AppendEntry(context.Background(), f.author, f.prospect, Draft{Type: models.EntryNote, Content: "mine"})
	assert.True(t, domain.IsConflict(err))
}

func TestNoteCount(t *testing.T) {
	log := []models.ActivityLogEntry{
		{Type: models.EntryNote}, {Type: models.EntryCall}, {Type: models.EntryNote}, {Type: models.EntryImage},
	}
	assert.Equal(t, 2, NoteCount(log))
	assert.Zero(t, NoteCount(nil))
}
