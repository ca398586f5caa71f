package gmail

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/provider"
)

// ThreadSummary is a thread as returned by a listing: no messages.
type ThreadSummary struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
}

// ListThreads pages through the threads matching opts.
func (s *Service) ListThreads(ctx context.Context, opts ListOptions) ([]ThreadSummary, error) {
	base := opts.params()
	return provider.Paginate(ctx, opts.max(), pageMax, func(ctx context.Context, size int, token string) ([]ThreadSummary, string, error) {
		params := cloneValues(base)
		params.Set("maxResults", strconv.Itoa(size))
		if token != "" {
			params.Set("pageToken", token)
		}
		var page struct {
			Threads       []ThreadSummary `json:"threads"`
			NextPageToken string          `json:"nextPageToken"`
		}
		if err := s.do(ctx, "threads.list", http.MethodGet, "threads", "", params, nil, &page); err != nil {
			return nil, "", err
		}
		return page.Threads, page.NextPageToken, nil
	})
}

// GetThread fetches a thread with all its messages, oldest first.
func (s *Service) GetThread(ctx context.Context, id string) (*Thread, error) {
	if err := requireID("thread", id); err != nil {
		return nil, err
	}
	var t gmail.Thread
	params := url.Values{"format": {"full"}}
	if err := s.do(ctx, "threads.get", http.MethodGet, "threads/"+id, id, params, nil, &t); err != nil {
		return nil, err
	}
	return fromAPIThread(&t, s.env.Loc()), nil
}

// BatchGetThreads fetches every thread id, in input order.
func (s *Service) BatchGetThreads(ctx context.Context, ids []string) (batch.Results[*Thread], error) {
	return batch.Run(ctx, s.batchOptions("threads.batchGet"), ids, func(ctx context.Context, _ int, id string) (*Thread, error) {
		return s.GetThread(ctx, id)
	})
}

// ModifyThread changes labels on every message of a thread.
func (s *Service) ModifyThread(ctx context.Context, id string, add, remove []string) error {
	if err := requireID("thread", id); err != nil {
		return err
	}
	body := &gmail.ModifyThreadRequest{AddLabelIds: add, RemoveLabelIds: remove}
	return s.do(ctx, "threads.modify", http.MethodPost, "threads/"+id+"/modify", id, nil, body, nil)
}

// ArchiveThread removes a whole thread from the inbox.
func (s *Service) ArchiveThread(ctx context.Context, id string) error {
	return s.ModifyThread(ctx, id, nil, []string{LabelInbox})
}

// BatchArchiveThreads archives every thread id. Failures are reported per id.
func (s *Service) BatchArchiveThreads(ctx context.Context, ids []string) (batch.Results[struct{}], error) {
	return batch.Run(ctx, s.batchOptions("threads.batchArchive"), ids, func(ctx context.Context, _ int, id string) (struct{}, error) {
		return struct{}{}, s.ArchiveThread(ctx, id)
	})
}

func (s *Service) TrashThread(ctx context.Context, id string) error {
	if err := requireID("thread", id); err != nil {
		return err
	}
	return s.do(ctx, "threads.trash", http.MethodPost, "threads/"+id+"/trash", id, nil, nil, nil)
}

func (s *Service) UntrashThread(ctx context.Context, id string) error {
	if err := requireID("thread", id); err != nil {
		return err
	}
	return s.do(ctx, "threads.untrash", http.MethodPost, "threads/"+id+"/untrash", id, nil, nil, nil)
}

// DeleteThread removes a thread permanently.
func (s *Service) DeleteThread(ctx context.Context, id string) error {
	if err := requireID("thread", id); err != nil {
		return err
	}
	return s.do(ctx, "threads.delete", http.MethodDelete, "threads/"+id, id, nil, nil, nil)
}

// groupThreadIDs returns the distinct thread ids of refs in first-seen order.
func groupThreadIDs(refs []messageRef) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range refs {
		if r.ThreadID == "" || seen[r.ThreadID] {
			continue
		}
		seen[r.ThreadID] = true
		out = append(out, r.ThreadID)
	}
	return out
}

func sortChronological(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Date.Before(msgs[j].Date)
	})
}
