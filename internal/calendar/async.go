package calendar

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

func (a *AsyncService) ListEvents(ctx context.Context, opts ListOptions) *async.Future[[]*Event] {
	return async.Go(ctx, func(ctx context.Context) ([]*Event, error) { return a.svc.ListEvents(ctx, opts) })
}

func (a *AsyncService) GetEvent(ctx context.Context, calendarID, eventID string) *async.Future[*Event] {
	return async.Go(ctx, func(ctx context.Context) (*Event, error) { return a.svc.GetEvent(ctx, calendarID, eventID) })
}

func (a *AsyncService) BatchGetEvents(ctx context.Context, calendarID string, ids []string) *async.Future[batch.Results[*Event]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Event], error) {
		return a.svc.BatchGetEvents(ctx, calendarID, ids)
	})
}

func (a *AsyncService) CreateEvent(ctx context.Context, calendarID string, in EventInput) *async.Future[*Event] {
	return async.Go(ctx, func(ctx context.Context) (*Event, error) { return a.svc.CreateEvent(ctx, calendarID, in) })
}

func (a *AsyncService) BatchCreateEvents(ctx context.Context, calendarID string, inputs []EventInput) *async.Future[batch.Results[*Event]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[*Event], error) {
		return a.svc.BatchCreateEvents(ctx, calendarID, inputs)
	})
}

func (a *AsyncService) UpdateEvent(ctx context.Context, e *Event) *async.Future[*Event] {
	return async.Go(ctx, func(ctx context.Context) (*Event, error) { return a.svc.UpdateEvent(ctx, e) })
}

func (a *AsyncService) DeleteEvent(ctx context.Context, calendarID, eventID string) *async.Future[struct{}] {
	return async.Do(ctx, func(ctx context.Context) error { return a.svc.DeleteEvent(ctx, calendarID, eventID) })
}

func (a *AsyncService) MoveEvent(ctx context.Context, e *Event, destinationID string) *async.Future[*Event] {
	return async.Go(ctx, func(ctx context.Context) (*Event, error) { return a.svc.MoveEvent(ctx, e, destinationID) })
}

func (a *AsyncService) Respond(ctx context.Context, e *Event, status string) *async.Future[*Event] {
	return async.Go(ctx, func(ctx context.Context) (*Event, error) { return a.svc.Respond(ctx, e, status) })
}

func (a *AsyncService) ListCalendars(ctx context.Context) *async.Future[[]*Calendar] {
	return async.Go(ctx, a.svc.ListCalendars)
}

func (a *AsyncService) GetCalendar(ctx context.Context, calendarID string) *async.Future[*Calendar] {
	return async.Go(ctx, func(ctx context.Context) (*Calendar, error) { return a.svc.GetCalendar(ctx, calendarID) })
}

func (a *AsyncService) FreeBusy(ctx context.Context, req FreeBusyRequest) *async.Future[*FreeBusy] {
	return async.Go(ctx, func(ctx context.Context) (*FreeBusy, error) { return a.svc.FreeBusy(ctx, req) })
}

func (a *AsyncService) FindFreeSlots(ctx context.Context, req FreeSlotRequest) *async.Future[[]TimeSlot] {
	return async.Go(ctx, func(ctx context.Context) ([]TimeSlot, error) { return a.svc.FindFreeSlots(ctx, req) })
}
