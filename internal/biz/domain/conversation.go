package domain

import (
	"sort"
	"time"
)

// ConversationSummary is the derived view of all messages exchanged with one partner.
// It is computed on read and never stored.
type ConversationSummary struct {
	PartnerID       string
	Partner         *UserProfile // nil if the partner is not in the directory
	LastMessage     string
	LastMessageTime time.Time
	UnreadCount     int
}

// GroupConversations groups messages involving userID by counterpart.
// Messages must be ordered newest first; the first message seen for a partner
// becomes its last message, so ties keep scan order. Unread counts only include
// messages where userID is the receiver.
func GroupConversations(userID string, newestFirst []Message) []ConversationSummary {
	index := make(map[string]int)
	var result []ConversationSummary

	for i := range newestFirst {
		m := &newestFirst[i]
		partner := m.PartnerOf(userID)

		idx, ok := index[partner]
		if !ok {
			idx = len(result)
			index[partner] = idx
			result = append(result, ConversationSummary{
				PartnerID:       partner,
				LastMessage:     m.Text,
				LastMessageTime: m.CreatedAt,
			})
		}

		if m.Receiver == userID && !m.Read {
			result[idx].UnreadCount++
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastMessageTime.After(result[j].LastMessageTime)
	})

	return result
}
