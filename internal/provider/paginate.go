package provider

import "context"

// PageFunc fetches one page of at most size items starting at token. It
// returns the items and the continuation token, empty on the last page.
type PageFunc[T any] func(ctx context.Context, size int, token string) ([]T, string, error)

// Paginate follows continuation tokens until max items are collected or the
// provider has no more pages. Each page asks for no more than the remaining
// count, capped at pageMax, so no page beyond the one that satisfies max is
// ever requested. A max of zero or less collects every page.
func Paginate[T any](ctx context.Context, max, pageMax int, fetch PageFunc[T]) ([]T, error) {
	var (
		all   []T
		token string
		seen  = map[string]bool{}
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		size := pageMax
		if max > 0 {
			if remaining := max - len(all); remaining < size {
				size = remaining
			}
		}

		items, next, err := fetch(ctx, size, token)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if max > 0 && len(all) >= max {
			return all[:max], nil
		}
		if next == "" || seen[next] {
			return all, nil
		}
		seen[next] = true
		token = next
	}
}
