package jobs

const TaskRefreshFeed = "feed:refresh"

// QueueRefresh is the queue refresh tasks run on.
const QueueRefresh = "refresh"

type RefreshFeedPayload struct {
	// Reason records who asked for the refresh ("api", "schedule").
	Reason      string `json:"reason"`
	RequestedAt int64  `json:"requested_at_unix,omitempty"`
}
