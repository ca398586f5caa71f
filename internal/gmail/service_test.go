package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/provider/providertest"
	"github.com/teemow/workspacekit/internal/query"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func apiMessage(id, threadID, from, subject string, date time.Time, labels ...string) *gmail.Message {
	return &gmail.Message{
		Id:       id,
		ThreadId: threadID,
		LabelIds: labels,
		Snippet:  "snippet " + id,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "To", Value: "Me <me@example.com>, carol@example.com"},
				{Name: "Subject", Value: subject},
				{Name: "Date", Value: date.Format(time.RFC1123Z)},
				{Name: "Message-ID", Value: "<" + id + "@mail.example.com>"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("hello " + id)}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>hello " + id + "</p>")}},
			},
		},
	}
}

// mailbox serves messages by id and lists them in pages.
type mailbox struct {
	fake     *providertest.Fake
	messages map[string]*gmail.Message
	order    []string
	gets     atomic.Int32
}

func newMailbox(msgs ...*gmail.Message) *mailbox {
	mb := &mailbox{fake: providertest.New(), messages: map[string]*gmail.Message{}}
	for _, m := range msgs {
		mb.messages[m.Id] = m
		mb.order = append(mb.order, m.Id)
	}

	mb.fake.Handle("GET", "gmail/users/me/messages/*", func(req *provider.Request) (any, error) {
		mb.gets.Add(1)
		m, ok := mb.messages[providertest.Last(req)]
		if !ok {
			return nil, providertest.NotFound()
		}
		return m, nil
	})

	mb.fake.Handle("GET", "gmail/users/me/messages", func(req *provider.Request) (any, error) {
		offset := 0
		if tok := req.Params.Get("pageToken"); tok != "" {
			offset, _ = strconv.Atoi(tok)
		}
		size, _ := strconv.Atoi(req.Params.Get("maxResults"))
		end := min(offset+size, len(mb.order))
		resp := &gmail.ListMessagesResponse{}
		for _, id := range mb.order[offset:end] {
			resp.Messages = append(resp.Messages, &gmail.Message{Id: id, ThreadId: mb.messages[id].ThreadId})
		}
		if end < len(mb.order) {
			resp.NextPageToken = strconv.Itoa(end)
		}
		return resp, nil
	})
	return mb
}

func (mb *mailbox) service(opts ...Option) *Service {
	return New(mb.fake, append([]Option{WithEnv(fixedEnv), WithSelf("me@example.com")}, opts...)...)
}

func sampleMailbox() *mailbox {
	day := time.Date(2024, 3, 12, 9, 0, 0, 0, berlin)
	return newMailbox(
		apiMessage("a", "t1", "Ann <ann@example.com>", "Hello", day, LabelInbox, LabelUnread),
		apiMessage("b", "t1", "Bob <bob@example.com>", "Re: Hello", day.Add(time.Hour), LabelInbox),
		apiMessage("c", "t2", "Carol <carol@example.com>", "Lunch", day.Add(2*time.Hour), LabelInbox, LabelStarred),
	)
}

func TestGetMessageNormalizes(t *testing.T) {
	svc := sampleMailbox().service()

	m, err := svc.GetMessage(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, "a", m.ID)
	assert.Equal(t, "t1", m.ThreadID)
	assert.Equal(t, "Hello", m.Subject)
	assert.Equal(t, Address{Name: "Ann", Email: "ann@example.com"}, m.From)
	assert.Equal(t, []Address{{Name: "Me", Email: "me@example.com"}, {Email: "carol@example.com"}}, m.To)
	assert.Equal(t, "hello a", m.BodyText)
	assert.Equal(t, "<p>hello a</p>", m.BodyHTML)
	assert.Equal(t, "<a@mail.example.com>", m.MessageIDHeader)
	assert.Equal(t, berlin, m.Date.Location())
	assert.True(t, m.IsUnread())
	assert.False(t, m.IsStarred())
}

func TestGetMessageRequiresID(t *testing.T) {
	mb := sampleMailbox()
	_, err := mb.service().GetMessage(context.Background(), "")
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
	assert.Empty(t, mb.fake.AllCalls())
}

func TestGetMessageNotFound(t *testing.T) {
	_, err := sampleMailbox().service().GetMessage(context.Background(), "nope")
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestBatchGetMessagesPartialFailure(t *testing.T) {
	for _, name := range []string{"sync", "async"} {
		t.Run(name, func(t *testing.T) {
			svc := sampleMailbox().service()
			ids := []string{"a", "b", "missing", "c"}

			results, err := svc.BatchGetMessages(context.Background(), ids)
			if name == "async" {
				results, err = svc.Async().BatchGetMessages(context.Background(), ids).Await(context.Background())
			}
			require.NoError(t, err)

			require.Equal(t, 4, results.Len())
			values := results.Values()
			require.Len(t, values, 3)
			assert.Equal(t, "a", values[0].ID)
			assert.Equal(t, "b", values[1].ID)
			assert.Equal(t, "c", values[2].ID)

			failed := results.Failed()
			require.Len(t, failed, 1)
			assert.Equal(t, 2, failed[0].Index)
			assert.Equal(t, "missing", failed[0].ID)
			assert.ErrorIs(t, failed[0].Err, apierror.ErrNotFound)

			var be *apierror.BatchError
			require.ErrorAs(t, results.Err(), &be)
			assert.ErrorIs(t, results.Err(), apierror.ErrPartialBatchFailure)
			assert.Equal(t, []string{"missing"}, be.FailedIDs())
		})
	}
}

func TestBatchGetMessagesCancelled(t *testing.T) {
	svc := sampleMailbox().service()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Async().BatchGetMessages(ctx, []string{"a", "b"}).Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueryExecute(t *testing.T) {
	mb := sampleMailbox()
	svc := mb.service()

	msgs, err := svc.Query().From("ann@example.com").Unread().Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	lists := mb.fake.Calls("GET", "gmail/users/me/messages")
	require.Len(t, lists, 1)
	assert.Equal(t, "from:ann@example.com is:unread", lists[0].Params.Get("q"))
	assert.Equal(t, strconv.Itoa(DefaultLimit), lists[0].Params.Get("maxResults"))
}

func TestQueryExecuteSkipsVanishedMessages(t *testing.T) {
	mb := sampleMailbox()
	delete(mb.messages, "b")

	msgs, err := mb.service().Query().Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "c", msgs[1].ID)
}

func TestQueryCountDoesNotFetchBodies(t *testing.T) {
	mb := sampleMailbox()

	n, err := mb.service().Query().InFolder("inbox").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(0), mb.gets.Load())

	lists := mb.fake.Calls("GET", "gmail/users/me/messages")
	require.Len(t, lists, 1)
	assert.Contains(t, lists[0].Params.Get("fields"), "messages(id")
}

func TestQueryExistsReadsOneID(t *testing.T) {
	mb := sampleMailbox()

	ok, err := mb.service().Query().Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	lists := mb.fake.Calls("GET", "gmail/users/me/messages")
	require.Len(t, lists, 1)
	assert.Equal(t, "1", lists[0].Params.Get("maxResults"))
	assert.Equal(t, int32(0), mb.gets.Load())
}

func TestQueryFirst(t *testing.T) {
	m, err := sampleMailbox().service().Query().First(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "a", m.ID)

	m, err = newMailbox().service().Query().First(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestQueryLimitPaginates(t *testing.T) {
	var msgs []*gmail.Message
	for i := 0; i < 30; i++ {
		msgs = append(msgs, apiMessage(fmt.Sprintf("m%02d", i), "t", "x@example.com", "s", fixedNow))
	}
	mb := newMailbox(msgs...)

	n, err := mb.service().Query().Limit(25).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestQueryValidationErrorsSurfaceAtTerminal(t *testing.T) {
	mb := sampleMailbox()
	q := mb.service().Query().LastDays(0).From("ann@example.com")

	_, err := q.Execute(context.Background())
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)

	_, err = mb.service().Query().Limit(MaxLimit + 1).Count(context.Background())
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)

	_, err = mb.service().Query().Where(query.Equals("attendee", "ann@example.com")).Count(context.Background())
	assert.ErrorIs(t, err, apierror.ErrUnsupportedCriterion)

	assert.Empty(t, mb.fake.AllCalls())
}

func TestQueryForksAreIndependent(t *testing.T) {
	base := sampleMailbox().service().Query().From("ann@example.com")
	unread := base.Unread()
	starred := base.Starred()

	n1, err := unread.Compile()
	require.NoError(t, err)
	n2, err := starred.Compile()
	require.NoError(t, err)
	n0, err := base.Compile()
	require.NoError(t, err)

	assert.Equal(t, "from:ann@example.com is:unread", n1.Q)
	assert.Equal(t, "from:ann@example.com is:starred", n2.Q)
	assert.Equal(t, "from:ann@example.com", n0.Q)
}

func TestQueryDateAndSizeBoundsCombine(t *testing.T) {
	q := sampleMailbox().service().Query().
		After(time.Date(2024, 1, 1, 0, 0, 0, 0, berlin)).
		Before(time.Date(2024, 2, 1, 0, 0, 0, 0, berlin)).
		LargerThan(100).
		SmallerThan(2000)

	n, err := q.Compile()
	require.NoError(t, err)
	assert.Equal(t, "after:"+epoch(time.Date(2024, 1, 1, 0, 0, 0, 0, berlin))+
		" before:"+epoch(time.Date(2024, 2, 1, 0, 0, 0, 0, berlin))+" larger:100 smaller:2000", n.Q)
}

func TestQueryThreads(t *testing.T) {
	mb := sampleMailbox()
	mb.fake.Handle("GET", "gmail/users/me/threads/*", func(req *provider.Request) (any, error) {
		id := providertest.Last(req)
		th := &gmail.Thread{Id: id}
		// Stored newest first to check the chronological sort.
		for i := len(mb.order) - 1; i >= 0; i-- {
			if m := mb.messages[mb.order[i]]; m.ThreadId == id {
				th.Messages = append(th.Messages, m)
			}
		}
		return th, nil
	})

	threads, err := mb.service().Query().Threads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, "t1", threads[0].ID)
	require.Len(t, threads[0].Messages, 2)
	assert.Equal(t, "a", threads[0].Messages[0].ID)
	assert.Equal(t, "b", threads[0].Latest().ID)
	assert.Equal(t, 1, threads[0].UnreadCount())
	assert.Equal(t, "Hello", threads[0].Subject())
	assert.Equal(t, "t2", threads[1].ID)

	assert.Len(t, mb.fake.Calls("GET", "gmail/users/me/threads/*"), 2)
	assert.Equal(t, int32(0), mb.gets.Load())
}

func TestAsyncQueryCancel(t *testing.T) {
	mb := sampleMailbox()
	block := make(chan struct{})
	mb.fake.Handle("GET", "gmail/users/me/messages", func(req *provider.Request) (any, error) {
		<-block
		return &gmail.ListMessagesResponse{}, nil
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := mb.service().Query().Async().Execute(context.Background()).Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStateChanges(t *testing.T) {
	tests := []struct {
		name       string
		call       func(*Service) error
		add        []string
		remove     []string
		wantPath   string
		wantMethod string
	}{
		{"mark read", func(s *Service) error { return s.MarkRead(context.Background(), "a") }, nil, []string{LabelUnread}, "users/me/messages/a/modify", "POST"},
		{"mark unread", func(s *Service) error { return s.MarkUnread(context.Background(), "a") }, []string{LabelUnread}, nil, "users/me/messages/a/modify", "POST"},
		{"star", func(s *Service) error { return s.Star(context.Background(), "a") }, []string{LabelStarred}, nil, "users/me/messages/a/modify", "POST"},
		{"archive", func(s *Service) error { return s.Archive(context.Background(), "a") }, nil, []string{LabelInbox}, "users/me/messages/a/modify", "POST"},
		{"trash", func(s *Service) error { return s.Delete(context.Background(), "a", false) }, nil, nil, "users/me/messages/a/trash", "POST"},
		{"delete", func(s *Service) error { return s.Delete(context.Background(), "a", true) }, nil, nil, "users/me/messages/a", "DELETE"},
		{"archive thread", func(s *Service) error { return s.ArchiveThread(context.Background(), "t1") }, nil, []string{LabelInbox}, "users/me/threads/t1/modify", "POST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := providertest.New()
			fake.Handle("", "gmail/users/me/*/*", func(req *provider.Request) (any, error) { return nil, nil })
			fake.Handle("", "gmail/users/me/*/*/*", func(req *provider.Request) (any, error) { return nil, nil })

			require.NoError(t, tt.call(New(fake)))

			calls := fake.AllCalls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantMethod, calls[0].Method)
			assert.Equal(t, tt.wantPath, calls[0].Path)
			if tt.add != nil || tt.remove != nil {
				var body struct {
					Add    []string `json:"addLabelIds"`
					Remove []string `json:"removeLabelIds"`
				}
				require.NoError(t, providertest.DecodeBody(calls[0], &body))
				assert.Equal(t, tt.add, body.Add)
				assert.Equal(t, tt.remove, body.Remove)
			}
		})
	}
}

func TestBatchModifyChunks(t *testing.T) {
	fake := providertest.New()
	var calls atomic.Int32
	fake.Handle("POST", "gmail/users/me/messages/batchModify", func(req *provider.Request) (any, error) {
		if calls.Add(1) == 2 {
			return nil, providertest.Status(500)
		}
		return nil, nil
	})

	ids := make([]string, 1500)
	for i := range ids {
		ids[i] = "m" + strconv.Itoa(i)
	}
	res, err := New(fake).BatchModify(context.Background(), ids, []string{"Label_1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1000, res.Successful())
	assert.Len(t, res.Failed(), 500)
	assert.Equal(t, "m1000", res.Failed()[0].ID)
	assert.ErrorIs(t, res.Err(), apierror.ErrPartialBatchFailure)
	assert.ErrorIs(t, res.Failed()[0].Err, apierror.ErrTransient)
}

func TestBatchArchiveThreads(t *testing.T) {
	fake := providertest.New()
	fake.Handle("POST", "gmail/users/me/threads/*/modify", func(req *provider.Request) (any, error) {
		if providertest.Segment(req, 3) == "gone" {
			return nil, providertest.NotFound()
		}
		return nil, nil
	})

	res, err := New(fake).Async().BatchArchiveThreads(context.Background(), []string{"t1", "gone", "t2"}).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Successful())
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "gone", res.Failed()[0].ID)
	assert.ErrorIs(t, res.Failed()[0].Err, apierror.ErrNotFound)
	assert.Len(t, fake.Calls("POST", "gmail/users/me/threads/*/modify"), 3)
}

func TestAttachmentData(t *testing.T) {
	fake := providertest.New()
	fake.Handle("GET", "gmail/users/me/messages/m1/attachments/*", func(req *provider.Request) (any, error) {
		switch providertest.Last(req) {
		case "big":
			return &gmail.MessagePartBody{Size: MaxAttachmentSize + 1}, nil
		case "std":
			return &gmail.MessagePartBody{Size: 3, Data: base64.StdEncoding.EncodeToString([]byte{0xfb, 0xff, 0x01})}, nil
		}
		return &gmail.MessagePartBody{Size: 5, Data: b64("hello")}, nil
	})
	svc := New(fake)

	data, err := svc.AttachmentData(context.Background(), "m1", "att")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = svc.AttachmentData(context.Background(), "m1", "std")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfb, 0xff, 0x01}, data)

	_, err = svc.AttachmentData(context.Background(), "m1", "big")
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
}

func TestLabels(t *testing.T) {
	fake := providertest.New()
	fake.Handle("GET", "gmail/users/me/labels", func(req *provider.Request) (any, error) {
		return &gmail.ListLabelsResponse{Labels: []*gmail.Label{
			{Id: "INBOX", Name: "INBOX", Type: "system"},
			{Id: "Label_1", Name: "Work", Type: "user"},
		}}, nil
	})
	fake.Handle("POST", "gmail/users/me/labels", func(req *provider.Request) (any, error) {
		var l gmail.Label
		require.NoError(t, providertest.DecodeBody(req, &l))
		return &gmail.Label{Id: "Label_2", Name: l.Name, Type: "user"}, nil
	})
	svc := New(fake)
	ctx := context.Background()

	l, err := svc.LabelByName(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, "Label_1", l.ID)

	_, err = svc.LabelByName(ctx, "nope")
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	created, err := svc.CreateLabel(ctx, "Travel")
	require.NoError(t, err)
	assert.Equal(t, "Label_2", created.ID)

	_, err = svc.UpdateLabel(ctx, &Label{ID: "INBOX", Name: "x", Type: LabelTypeSystem})
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)

	_, err = svc.CreateLabel(ctx, "  ")
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
}

func TestFilterFromQuery(t *testing.T) {
	fake := providertest.New()
	fake.Handle("POST", "gmail/users/me/settings/filters", func(req *provider.Request) (any, error) {
		var f gmail.Filter
		require.NoError(t, providertest.DecodeBody(req, &f))
		f.Id = "f1"
		return &f, nil
	})
	svc := New(fake, WithEnv(fixedEnv))

	f, err := svc.CreateFilter(context.Background(),
		svc.Query().From("news@example.com").WithLabel("promo"),
		FilterAction{Archive: true, MarkAsRead: true, AddLabelIDs: []string{"Label_9"}})
	require.NoError(t, err)

	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, "from:news@example.com label:promo", f.Query)
	assert.True(t, f.Action.Archive)
	assert.True(t, f.Action.MarkAsRead)
	assert.False(t, f.Action.Star)
	assert.Equal(t, []string{LabelInbox, LabelUnread}, f.Action.RemoveLabelIDs)

	_, err = svc.CreateFilter(context.Background(), svc.Query().WithLabelID("Label_1"), FilterAction{})
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
}

func TestProfileFailureStopsReply(t *testing.T) {
	fake := providertest.New()
	fake.Handle("GET", "gmail/users/me/profile", func(req *provider.Request) (any, error) {
		return nil, providertest.Status(401)
	})
	svc := New(fake)

	_, err := svc.Reply(context.Background(), &Message{ID: "a", From: Address{Email: "x@example.com"}}, ReplyOptions{Body: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierror.ErrUnauthenticated))
	assert.Empty(t, fake.Calls("POST", "gmail/users/me/messages/send"))
}
