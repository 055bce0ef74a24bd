package timeline

import (
	"time"

	"channel-chat-service/internal/models"
)

const (
	// A group stops accepting messages once it holds more than this many.
	maxGroupLength = 20
	// Messages further apart than this start a new group.
	groupGap = 30 * time.Minute
)

// Group is a run of consecutive messages by one author, rendered under a
// single header.
type Group struct {
	AuthorID       string
	AuthorUsername string
	Messages       []models.Message
}

// GroupMessages folds msgs into groups, continuing from the given tail.
// A message joins the last group iff it has the same author, the group
// holds at most maxGroupLength messages, and the gap to the group's last
// message is under groupGap. Passing a nil seed regroups from scratch;
// regrouping a full list and extending a prior grouping one message at a
// time produce identical results.
func GroupMessages(msgs []models.Message, groups []Group) []Group {
	for _, msg := range msgs {
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			tail := last.Messages[len(last.Messages)-1]
			if last.AuthorID == msg.AuthorID &&
				len(last.Messages) <= maxGroupLength &&
				msg.CreatedAt.Sub(tail.CreatedAt) < groupGap {
				last.Messages = append(last.Messages, msg)
				continue
			}
		}
		groups = append(groups, Group{
			AuthorID:       msg.AuthorID,
			AuthorUsername: msg.AuthorUsername,
			Messages:       []models.Message{msg},
		})
	}
	return groups
}
