package chat

// Snapshot is the full ordered sequence of messages known by the store.
// Each snapshot replaces the previous one.
type Snapshot struct {
	Messages []Message
}

func (s Snapshot) Len() int {
	return len(s.Messages)
}

type FeedStatus int

const (
	FeedLoading FeedStatus = iota
	FeedReady
	FeedUnavailable
)

func (f FeedStatus) String() string {
	switch f {
	case FeedReady:
		return "ready"
	case FeedUnavailable:
		return "unavailable"
	default:
		return "loading"
	}
}
