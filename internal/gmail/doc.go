// Package gmail wraps the Gmail REST API behind a typed message model, a
// search query builder and a service façade.
//
// Searches are built from criteria and compiled into the Gmail search
// syntax only when a terminal call runs:
//
//	svc := gmail.New(client, gmail.WithEnv(query.NewEnv(loc)))
//	msgs, err := svc.Query().
//		From("alerts@example.com").
//		Unread().
//		LastDays(7).
//		Execute(ctx)
//
// Relative dates such as LastDays resolve against the service's clock and
// location at that moment.
//
// Service blocks on every call and runs batch operations sequentially.
// Service.Async returns the same operations as futures, with batch
// operations fanned out over a bounded window:
//
//	res, err := svc.Async().BatchGetMessages(ctx, ids).Await(ctx)
//	for _, failed := range res.Failed() {
//		log.Printf("%s: %v", failed.ID, failed.Err)
//	}
//
// Composition (Send, Reply, ReplyAll, Forward, CreateDraft) validates the
// message before anything is sent and builds the MIME body locally.
package gmail
