package solana

import "context"

// WSClient streams transaction logs for accounts the scanner watches.
type WSClient interface {
	// SubscribeLogs opens a logsSubscribe feed for filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Unsubscribe ends the feed behind ch. No further notifications are
	// delivered on ch, and ch is left open. Unknown channels are ignored.
	Unsubscribe(ctx context.Context, ch <-chan LogNotification) error

	// Close ends every feed and closes their channels.
	Close() error
}

// LogsFilter selects the transactions a feed delivers.
type LogsFilter struct {
	// Mentions holds the account whose transactions are delivered. Nodes
	// accept a single account; empty subscribes to all transactions.
	Mentions []string
}

// LogNotification is one transaction seen by a logs feed.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
