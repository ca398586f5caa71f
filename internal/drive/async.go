package drive

import (
	"context"
	"io"

	"github.com/teemow/workspacekit/internal/async"
	"github.com/teemow/workspacekit/internal/batch"
)

// AsyncService mirrors Service with every call returning a future.
type AsyncService struct {
	svc *Service
}

func (a *AsyncService) Query() *AsyncQuery {
	return a.svc.Query().Async()
}

func (a *AsyncService) ListItems(ctx context.Context, opts ListOptions) *async.Future[[]*Item] {
	return async.Go(ctx, func(ctx context.Context) ([]*Item, error) { return a.svc.ListItems(ctx, opts) })
}

func (a *AsyncService) GetItem(ctx context.Context, id string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.GetItem(ctx, id) })
}

func (a *AsyncService) BatchGetItems(ctx context.Context, ids []string) *async.Future[batch.Results[*Item]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Item], error) { return a.svc.BatchGetItems(ctx, ids) })
}

func (a *AsyncService) Upload(ctx context.Context, opts UploadOptions, r io.Reader) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.Upload(ctx, opts, r) })
}

// Download writes to w from another goroutine; w must not be used until the
// future resolves.
func (a *AsyncService) Download(ctx context.Context, id string, w io.Writer) *async.Future[string] {
	return async.Go(ctx, func(ctx context.Context) (string, error) { return a.svc.Download(ctx, id, w) })
}

func (a *AsyncService) Update(ctx context.Context, item *Item) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.Update(ctx, item) })
}

func (a *AsyncService) Rename(ctx context.Context, id, name string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.Rename(ctx, id, name) })
}

func (a *AsyncService) Copy(ctx context.Context, id, name, parentID string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.Copy(ctx, id, name, parentID) })
}

func (a *AsyncService) Move(ctx context.Context, id, newParentID string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.Move(ctx, id, newParentID) })
}

func (a *AsyncService) Delete(ctx context.Context, id string, permanent bool) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.Delete(ctx, id, permanent) })
}

func (a *AsyncService) Restore(ctx context.Context, id string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.Restore(ctx, id) })
}

func (a *AsyncService) CreateFolder(ctx context.Context, name, parentID string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.CreateFolder(ctx, name, parentID) })
}

func (a *AsyncService) BatchCreateFolders(ctx context.Context, names []string, parentID string) *async.Future[batch.Results[*Item]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Item], error) {
		return a.svc.BatchCreateFolders(ctx, names, parentID)
	})
}

func (a *AsyncService) FolderContents(ctx context.Context, folderID string) *async.Future[[]*Item] {
	return async.Go(ctx, func(ctx context.Context) ([]*Item, error) { return a.svc.FolderContents(ctx, folderID) })
}

func (a *AsyncService) ParentFolder(ctx context.Context, id string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.ParentFolder(ctx, id) })
}

func (a *AsyncService) FolderByPath(ctx context.Context, path string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.FolderByPath(ctx, path) })
}

func (a *AsyncService) CreateFolderPath(ctx context.Context, path string) *async.Future[*Item] {
	return async.Go(ctx, func(ctx context.Context) (*Item, error) { return a.svc.CreateFolderPath(ctx, path) })
}

func (a *AsyncService) Share(ctx context.Context, id string, opts ShareOptions) *async.Future[*Permission] {
	return async.Go(ctx, func(ctx context.Context) (*Permission, error) { return a.svc.Share(ctx, id, opts) })
}

func (a *AsyncService) Permissions(ctx context.Context, id string) *async.Future[[]*Permission] {
	return async.Go(ctx, func(ctx context.Context) ([]*Permission, error) { return a.svc.Permissions(ctx, id) })
}

func (a *AsyncService) RemovePermission(ctx context.Context, id, permissionID string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.RemovePermission(ctx, id, permissionID) })
}
