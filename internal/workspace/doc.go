// Package workspace wires the Gmail, Drive, Calendar and Tasks services to a
// single provider.Client with a shared time zone, clock and concurrency.
//
//	cfg := workspace.DefaultConfig()
//	ws, err := workspace.Open(ctx, store, cfg)
//	unread, err := ws.Gmail.Query().Unread().LastDays(7).Execute(ctx)
//
// Open authenticates through a google.TokenProvider; New accepts any
// provider.Client, which is how tests substitute providertest.Fake.
package workspace
