package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/internal/realtime"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/pagination"
)

type pushed struct {
	userID uuid.UUID
	name   string
	data   any
}

type recordingPusher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPusher) EmitToUser(ctx context.Context, userID uuid.UUID, name string, data any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{userID: userID, name: name, data: data})
	return 1
}

func newTestService(t *testing.T, pusher Pusher) (*service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, pusher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	impl.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return impl, repo
}

func notifyOne(t *testing.T, svc *service, userID uuid.UUID, title string) *NotificationDTO {
	t.Helper()
	dto, err := svc.Notify(context.Background(), NewNotification{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderStatus,
		Title:   title,
		Message: title + " body",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	return dto
}

func TestService_NotifyPersistsAndPushes(t *testing.T) {
	pusher := &recordingPusher{}
	svc, _ := newTestService(t, pusher)
	userID := uuid.New()
	orderID := uuid.New()

	dto, err := svc.Notify(context.Background(), NewNotification{
		UserID:  userID,
		OrderID: &orderID,
		Type:    enums.NotificationTypePayment,
		Title:   "  Payment received ",
		Message: "We received 30000 VND.",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if dto.Title != "Payment received" || dto.Read {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if len(pusher.events) != 1 {
		t.Fatalf("expected one push, got %d", len(pusher.events))
	}
	if pusher.events[0].userID != userID || pusher.events[0].name != realtime.EventNotification {
		t.Fatalf("unexpected push %+v", pusher.events[0])
	}

	page, err := svc.List(context.Background(), ListParams{UserID: userID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != dto.ID {
		t.Fatalf("expected stored notification, got %+v", page.Items)
	}
}

func TestService_NotifyValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	cases := map[string]NewNotification{
		"missing user":  {Type: enums.NotificationTypeSystem, Title: "t", Message: "m"},
		"bad type":      {UserID: uuid.New(), Type: "sms", Title: "t", Message: "m"},
		"blank message": {UserID: uuid.New(), Type: enums.NotificationTypeSystem, Title: "t", Message: "  "},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Notify(context.Background(), input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_ListPaginatesNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, nil)
	userID := uuid.New()
	first := notifyOne(t, svc, userID, "first")
	second := notifyOne(t, svc, userID, "second")
	third := notifyOne(t, svc, userID, "third")
	notifyOne(t, svc, uuid.New(), "someone else")

	page, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != third.ID || page.Items[1].ID != second.ID {
		t.Fatalf("unexpected first page %+v", page.Items)
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}
	decoded, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("invalid cursor %q: %v", page.NextCursor, err)
	}
	if decoded.ID != second.ID {
		t.Fatalf("expected cursor id %s got %s", second.ID, decoded.ID)
	}

	rest, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest.Items) != 1 || rest.Items[0].ID != first.ID || rest.NextCursor != "" {
		t.Fatalf("unexpected second page %+v", rest)
	}
}

func TestService_ListInvalidCursor(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "bad"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_ReadFlow(t *testing.T) {
	svc, _ := newTestService(t, nil)
	userID := uuid.New()
	first := notifyOne(t, svc, userID, "first")
	notifyOne(t, svc, userID, "second")
	notifyOne(t, svc, userID, "third")

	if err := svc.MarkRead(context.Background(), userID, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, err := svc.UnreadCount(context.Background(), userID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	unread, err := svc.List(context.Background(), ListParams{UserID: userID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	for _, item := range unread.Items {
		if item.ID == first.ID || item.Read {
			t.Fatalf("read notification returned in unread list: %+v", item)
		}
	}

	updated, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated, got %d", updated)
	}
	if count, _ := svc.UnreadCount(context.Background(), userID); count != 0 {
		t.Fatalf("expected no unread, got %d", count)
	}
}

func TestService_MarkReadOtherUsersNotification(t *testing.T) {
	svc, _ := newTestService(t, nil)
	owned := notifyOne(t, svc, uuid.New(), "private")

	err := svc.MarkRead(context.Background(), uuid.New(), owned.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
