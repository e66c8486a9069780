package gtfs

import "zetlive.dev/internal/watch"

// ScheduleStore and FeedStore are the latest-value cells the rest of the
// application reads. Set swaps the handle atomically, Changed and Wait give
// edge-triggered notification of the next publication.
type (
	ScheduleStore = watch.Value[*ScheduleSnapshot]
	FeedStore     = watch.Value[*FeedSnapshot]
)

func NewScheduleStore() *ScheduleStore {
	return watch.NewValue[*ScheduleSnapshot]()
}

func NewFeedStore() *FeedStore {
	return watch.NewValue[*FeedSnapshot]()
}
