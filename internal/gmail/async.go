package gmail

import (
	"context"

	"github.com/teemow/workspacekit/internal/async"
	"github.com/teemow/workspacekit/internal/batch"
)

// AsyncService mirrors Service with every call returning a future. Batch
// operations fan out over the configured concurrency window.
type AsyncService struct {
	svc *Service
}

// Query starts a search whose terminals return futures.
func (a *AsyncService) Query() *AsyncQuery {
	return &AsyncQuery{q: a.svc.Query()}
}

func (a *AsyncService) ListMessages(ctx context.Context, opts ListOptions) *async.Future[[]*Message] {
	return async.Go(ctx, func(ctx context.Context) ([]*Message, error) { return a.svc.ListMessages(ctx, opts) })
}

func (a *AsyncService) GetMessage(ctx context.Context, id string) *async.Future[*Message] {
	return async.Go(ctx, func(ctx context.Context) (*Message, error) { return a.svc.GetMessage(ctx, id) })
}

func (a *AsyncService) BatchGetMessages(ctx context.Context, ids []string) *async.Future[batch.Results[*Message]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Message], error) { return a.svc.BatchGetMessages(ctx, ids) })
}

func (a *AsyncService) ModifyLabels(ctx context.Context, id string, add, remove []string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.ModifyLabels(ctx, id, add, remove) })
}

func (a *AsyncService) AddLabels(ctx context.Context, id string, labelIDs ...string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.AddLabels(ctx, id, labelIDs...) })
}

func (a *AsyncService) RemoveLabels(ctx context.Context, id string, labelIDs ...string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.RemoveLabels(ctx, id, labelIDs...) })
}

func (a *AsyncService) MarkRead(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.MarkRead(ctx, id) })
}

func (a *AsyncService) MarkUnread(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.MarkUnread(ctx, id) })
}

func (a *AsyncService) Star(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.Star(ctx, id) })
}

func (a *AsyncService) Unstar(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.Unstar(ctx, id) })
}

func (a *AsyncService) Archive(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.Archive(ctx, id) })
}

func (a *AsyncService) Trash(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.Trash(ctx, id) })
}

func (a *AsyncService) Untrash(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.Untrash(ctx, id) })
}

func (a *AsyncService) Delete(ctx context.Context, id string, permanent bool) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.Delete(ctx, id, permanent) })
}

func (a *AsyncService) BatchModify(ctx context.Context, ids, add, remove []string) *async.Future[batch.Results[string]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[string], error) {
		return a.svc.BatchModify(ctx, ids, add, remove)
	})
}

func (a *AsyncService) AttachmentData(ctx context.Context, messageID, attachmentID string) *async.Future[[]byte] {
	return async.Go(ctx, func(ctx context.Context) ([]byte, error) {
		return a.svc.AttachmentData(ctx, messageID, attachmentID)
	})
}

func (a *AsyncService) Profile(ctx context.Context) *async.Future[string] {
	return async.Go(ctx, a.svc.Profile)
}

func (a *AsyncService) Send(ctx context.Context, d Draft) *async.Future[*Message] {
	return async.Go(ctx, func(ctx context.Context) (*Message, error) { return a.svc.Send(ctx, d) })
}

func (a *AsyncService) BatchSend(ctx context.Context, drafts []Draft) *async.Future[batch.Results[*Message]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Message], error) { return a.svc.BatchSend(ctx, drafts) })
}

func (a *AsyncService) CreateDraft(ctx context.Context, d Draft) *async.Future[*SavedDraft] {
	return async.Go(ctx, func(ctx context.Context) (*SavedDraft, error) { return a.svc.CreateDraft(ctx, d) })
}

func (a *AsyncService) SendDraft(ctx context.Context, draftID string) *async.Future[*Message] {
	return async.Go(ctx, func(ctx context.Context) (*Message, error) { return a.svc.SendDraft(ctx, draftID) })
}

func (a *AsyncService) DeleteDraft(ctx context.Context, draftID string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.DeleteDraft(ctx, draftID) })
}

func (a *AsyncService) Reply(ctx context.Context, original *Message, opts ReplyOptions) *async.Future[*Message] {
	return async.Go(ctx, func(ctx context.Context) (*Message, error) { return a.svc.Reply(ctx, original, opts) })
}

func (a *AsyncService) ReplyAll(ctx context.Context, original *Message, opts ReplyOptions) *async.Future[*Message] {
	return async.Go(ctx, func(ctx context.Context) (*Message, error) { return a.svc.ReplyAll(ctx, original, opts) })
}

func (a *AsyncService) Forward(ctx context.Context, original *Message, opts ForwardOptions) *async.Future[*Message] {
	return async.Go(ctx, func(ctx context.Context) (*Message, error) { return a.svc.Forward(ctx, original, opts) })
}

func (a *AsyncService) ListLabels(ctx context.Context) *async.Future[[]*Label] {
	return async.Go(ctx, a.svc.ListLabels)
}

func (a *AsyncService) GetLabel(ctx context.Context, id string) *async.Future[*Label] {
	return async.Go(ctx, func(ctx context.Context) (*Label, error) { return a.svc.GetLabel(ctx, id) })
}

func (a *AsyncService) LabelByName(ctx context.Context, name string) *async.Future[*Label] {
	return async.Go(ctx, func(ctx context.Context) (*Label, error) { return a.svc.LabelByName(ctx, name) })
}

func (a *AsyncService) CreateLabel(ctx context.Context, name string) *async.Future[*Label] {
	return async.Go(ctx, func(ctx context.Context) (*Label, error) { return a.svc.CreateLabel(ctx, name) })
}

func (a *AsyncService) UpdateLabel(ctx context.Context, label *Label) *async.Future[*Label] {
	return async.Go(ctx, func(ctx context.Context) (*Label, error) { return a.svc.UpdateLabel(ctx, label) })
}

func (a *AsyncService) DeleteLabel(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.DeleteLabel(ctx, id) })
}

func (a *AsyncService) ListThreads(ctx context.Context, opts ListOptions) *async.Future[[]ThreadSummary] {
	return async.Go(ctx, func(ctx context.Context) ([]ThreadSummary, error) { return a.svc.ListThreads(ctx, opts) })
}

func (a *AsyncService) GetThread(ctx context.Context, id string) *async.Future[*Thread] {
	return async.Go(ctx, func(ctx context.Context) (*Thread, error) { return a.svc.GetThread(ctx, id) })
}

func (a *AsyncService) BatchGetThreads(ctx context.Context, ids []string) *async.Future[batch.Results[*Thread]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Thread], error) { return a.svc.BatchGetThreads(ctx, ids) })
}

func (a *AsyncService) ModifyThread(ctx context.Context, id string, add, remove []string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.ModifyThread(ctx, id, add, remove) })
}

func (a *AsyncService) ArchiveThread(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.ArchiveThread(ctx, id) })
}

func (a *AsyncService) BatchArchiveThreads(ctx context.Context, ids []string) *async.Future[batch.Results[struct{}]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[struct{}], error) {
		return a.svc.BatchArchiveThreads(ctx, ids)
	})
}

func (a *AsyncService) TrashThread(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.TrashThread(ctx, id) })
}

func (a *AsyncService) UntrashThread(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.UntrashThread(ctx, id) })
}

func (a *AsyncService) DeleteThread(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.DeleteThread(ctx, id) })
}

func (a *AsyncService) ListFilters(ctx context.Context) *async.Future[[]*Filter] {
	return async.Go(ctx, a.svc.ListFilters)
}

func (a *AsyncService) CreateFilter(ctx context.Context, q *Query, action FilterAction) *async.Future[*Filter] {
	return async.Go(ctx, func(ctx context.Context) (*Filter, error) { return a.svc.CreateFilter(ctx, q, action) })
}

func (a *AsyncService) DeleteFilter(ctx context.Context, id string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.DeleteFilter(ctx, id) })
}
