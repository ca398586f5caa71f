// Package provider is the transport boundary to the Google Workspace REST APIs.
//
// Services never talk HTTP directly. They build a Request, hand it to a Client
// and decode the Response into the google.golang.org/api types before
// normalizing them. Continuation tokens are passed through untouched; see
// Paginate.
package provider
