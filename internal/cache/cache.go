package cache

import "context"

// Entry is one memoized geo lookup. Misses are cached too, so a city that
// is absent from the referential is not re-queried for every offer.
type Entry struct {
	CommuneID int64 `json:"commune_id"`
	Found     bool  `json:"found"`
}

// CommuneCache memoizes (cleaned city, postal code) lookups. It is a pure
// performance optimization: a cold cache must produce the same resolutions
// as a warm one, so implementations may drop entries at any time and must
// swallow their own infrastructure errors as misses.
type CommuneCache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, e Entry)
	Len(ctx context.Context) int
}
