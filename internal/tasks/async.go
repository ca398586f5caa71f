package tasks

import (
	"context"

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

func (a *AsyncService) ListTaskLists(ctx context.Context) *async.Future[[]*TaskList] {
	return async.Go(ctx, a.svc.ListTaskLists)
}

func (a *AsyncService) GetTaskList(ctx context.Context, listID string) *async.Future[*TaskList] {
	return async.Go(ctx, func(ctx context.Context) (*TaskList, error) { return a.svc.GetTaskList(ctx, listID) })
}

func (a *AsyncService) CreateTaskList(ctx context.Context, title string) *async.Future[*TaskList] {
	return async.Go(ctx, func(ctx context.Context) (*TaskList, error) { return a.svc.CreateTaskList(ctx, title) })
}

func (a *AsyncService) UpdateTaskList(ctx context.Context, list *TaskList) *async.Future[*TaskList] {
	return async.Go(ctx, func(ctx context.Context) (*TaskList, error) { return a.svc.UpdateTaskList(ctx, list) })
}

func (a *AsyncService) DeleteTaskList(ctx context.Context, listID string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.DeleteTaskList(ctx, listID) })
}

func (a *AsyncService) ListTasks(ctx context.Context, opts ListOptions) *async.Future[[]*Task] {
	return async.Go(ctx, func(ctx context.Context) ([]*Task, error) { return a.svc.ListTasks(ctx, opts) })
}

func (a *AsyncService) GetTask(ctx context.Context, listID, taskID string) *async.Future[*Task] {
	return async.Go(ctx, func(ctx context.Context) (*Task, error) { return a.svc.GetTask(ctx, listID, taskID) })
}

func (a *AsyncService) BatchGetTasks(ctx context.Context, listID string, ids []string) *async.Future[batch.Results[*Task]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Task], error) {
		return a.svc.BatchGetTasks(ctx, listID, ids)
	})
}

func (a *AsyncService) CreateTask(ctx context.Context, listID string, in TaskInput) *async.Future[*Task] {
	return async.Go(ctx, func(ctx context.Context) (*Task, error) { return a.svc.CreateTask(ctx, listID, in) })
}

func (a *AsyncService) BatchCreateTasks(ctx context.Context, listID string, inputs []TaskInput) *async.Future[batch.Results[*Task]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Task], error) {
		return a.svc.BatchCreateTasks(ctx, listID, inputs)
	})
}

func (a *AsyncService) UpdateTask(ctx context.Context, t *Task) *async.Future[*Task] {
	return async.Go(ctx, func(ctx context.Context) (*Task, error) { return a.svc.UpdateTask(ctx, t) })
}

func (a *AsyncService) DeleteTask(ctx context.Context, listID, taskID string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.DeleteTask(ctx, listID, taskID) })
}

func (a *AsyncService) CompleteTask(ctx context.Context, listID, taskID string) *async.Future[*Task] {
	return async.Go(ctx, func(ctx context.Context) (*Task, error) { return a.svc.CompleteTask(ctx, listID, taskID) })
}

func (a *AsyncService) ReopenTask(ctx context.Context, listID, taskID string) *async.Future[*Task] {
	return async.Go(ctx, func(ctx context.Context) (*Task, error) { return a.svc.ReopenTask(ctx, listID, taskID) })
}

func (a *AsyncService) MoveTask(ctx context.Context, t *Task, opts MoveOptions) *async.Future[*Task] {
	return async.Go(ctx, func(ctx context.Context) (*Task, error) { return a.svc.MoveTask(ctx, t, opts) })
}

func (a *AsyncService) ClearCompleted(ctx context.Context, listID string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.ClearCompleted(ctx, listID) })
}
