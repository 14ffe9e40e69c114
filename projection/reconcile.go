// Package projection builds the displayed feed from the stream and local send state.
// Handles ordering and suppression of the in-flight message.
// Does not talk to the store or the identity provider.
package projection

import (
	"realtime-chat/domain/chat"
	"slices"

	"github.com/samber/lo"
)

// Render returns the messages to display for selfUserID.
// The snapshot order is kept as is. While pending is an active send of selfUserID,
// the most recent message of selfUserID carrying the same text is left out, so a
// persisted copy of the in-flight message never shows next to the optimistic state.
// Matching is by author and text only: no identifier exists before persistence,
// so an earlier identical message may be hidden during that window.
func Render(snapshot chat.Snapshot, pending *chat.PendingSend, selfUserID string) []chat.Message {
	messages := snapshot.Messages
	if !pending.Active(selfUserID) {
		return slices.Clone(messages)
	}

	_, suppressed, found := lo.FindLastIndexOf(messages, func(m chat.Message) bool {
		return m.IsOwnedBy(selfUserID) && m.Text == pending.Text
	})
	if !found {
		return slices.Clone(messages)
	}
	return lo.Reject(messages, func(_ chat.Message, i int) bool {
		return i == suppressed
	})
}
