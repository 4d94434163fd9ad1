package cache

import "time"

// FeedIndexKey holds the snapshot of the presented index listing.
const FeedIndexKey = "feed:index"

// DefaultFeedTTL is used when no positive TTL is configured.
const DefaultFeedTTL = 300 * time.Second
