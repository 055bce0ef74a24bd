package timeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-chat-service/internal/models"
)

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, channelID, beforeID string) ([]models.Message, error)

func (f fetcherFunc) FetchPage(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
	return f(ctx, channelID, beforeID)
}

func pageOf(ids ...string) []models.Message {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msgs := make([]models.Message, 0, len(ids))
	for i, id := range ids {
		msgs = append(msgs, models.Message{
			ID:             id,
			ChannelID:      "general",
			AuthorID:       "alice",
			AuthorUsername: "alice",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	return msgs
}

func TestInitialFetchLoadsNewestPage(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		require.Equal(t, "general", channelID)
		require.Empty(t, beforeID)
		return pageOf("m1", "m2", "m3"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")

	action, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScrollToBottom, action)
	assert.True(t, a.Loaded())
	assert.False(t, a.FetchedAll())
	assert.Len(t, a.Messages(), 3)
	assert.Len(t, a.Groups(), 1)
}

func TestEmptyPageMarksFetchedAll(t *testing.T) {
	calls := 0
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		calls++
		return nil, nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")

	action, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScrollNone, action)
	assert.True(t, a.Loaded())
	assert.True(t, a.FetchedAll())
	assert.Empty(t, a.Messages())

	// history is exhausted: a further scrollback fetch is a no-op
	_, err = a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestScrollbackPrependsOlderPage(t *testing.T) {
	pages := map[string][]models.Message{
		"":   pageOf("m4", "m5", "m6"),
		"m4": pageOf("m1", "m2", "m3"),
	}
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		return pages[beforeID], nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")

	_, err := a.Fetch(context.Background())
	require.NoError(t, err)

	action, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScrollRestoreAnchor, action)

	msgs := a.Messages()
	require.Len(t, msgs, 6)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m6", msgs[5].ID)
}

func TestOnlyOneFetchInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		calls++
		close(started)
		<-release
		return pageOf("m1"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Fetch(context.Background())
	}()

	<-started
	// second fetch while the first is in flight must be a no-op
	action, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScrollNone, action)

	close(release)
	<-done
	assert.Equal(t, 1, calls)
}

func TestLivePushDuringFetchIsNotLostOrDuplicated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		close(started)
		<-release
		// the newest page already contains the message that was also pushed
		return pageOf("m1", "m2", "m3"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")

	done := make(chan ScrollAction, 1)
	go func() {
		action, _ := a.Fetch(context.Background())
		done <- action
	}()

	<-started
	pushed := pageOf("m1", "m2", "m3")[2]
	a.HandleMessage(pushed)
	close(release)

	assert.Equal(t, ScrollToBottom, <-done)

	msgs := a.Messages()
	require.Len(t, msgs, 3)
	seen := map[string]int{}
	for _, m := range msgs {
		seen[m.ID]++
	}
	assert.Equal(t, 1, seen["m3"], "pushed message must appear exactly once")
}

func TestChannelSwitchDiscardsStaleFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		if channelID == "general" {
			close(started)
			<-release
			return pageOf("m1", "m2"), nil
		}
		return nil, nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Fetch(context.Background())
	}()

	<-started
	a.EnterChannel("random")
	close(release)
	<-done

	// the stale result must not leak into the new channel's state
	assert.False(t, a.Loaded())
	assert.Empty(t, a.Messages())
	assert.Equal(t, "random", a.ActiveChannel())
}

func TestHandleMessageAppendsIncrementally(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		return pageOf("m1", "m2"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")
	_, err := a.Fetch(context.Background())
	require.NoError(t, err)

	a.SetScrollState(true, 0)
	newMsg := models.Message{
		ID:             "m3",
		ChannelID:      "general",
		AuthorID:       "alice",
		AuthorUsername: "alice",
		CreatedAt:      time.Date(2024, 5, 1, 12, 2, 0, 0, time.UTC),
	}
	action := a.HandleMessage(newMsg)
	assert.Equal(t, ScrollRevealNew, action)
	assert.Len(t, a.Messages(), 3)
	require.Len(t, a.Groups(), 1)
	assert.Len(t, a.Groups()[0].Messages, 3)

	// same push again is ignored
	assert.Equal(t, ScrollNone, a.HandleMessage(newMsg))
	assert.Len(t, a.Messages(), 3)

	// a push for another channel is ignored
	other := newMsg
	other.ID = "x1"
	other.ChannelID = "random"
	assert.Equal(t, ScrollNone, a.HandleMessage(other))
	assert.Len(t, a.Messages(), 3)
}

func TestHandleMessageAwayFromBottomDoesNotScroll(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		return pageOf("m1"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")
	_, err := a.Fetch(context.Background())
	require.NoError(t, err)

	a.SetScrollState(false, 120)
	action := a.HandleMessage(models.Message{ID: "m2", ChannelID: "general", AuthorID: "bob", CreatedAt: time.Now()})
	assert.Equal(t, ScrollNone, action)
	assert.Equal(t, 120.0, a.AnchorOffset())
}

func TestHandleEditOverwritesInPlace(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		return pageOf("m1", "m2", "m3"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")
	_, err := a.Fetch(context.Background())
	require.NoError(t, err)

	groupsBefore := len(a.Groups())

	edited := pageOf("m1", "m2", "m3")[1]
	edited.Revisions = models.RevisionList{
		{Text: "hello", Date: edited.CreatedAt},
		{Text: "hello world", Date: edited.CreatedAt.Add(time.Minute)},
	}
	a.HandleEdit(edited)

	msgs := a.Messages()
	assert.Equal(t, "hello world", msgs[1].Text())
	assert.Len(t, a.Groups(), groupsBefore)
	assert.Equal(t, "hello world", a.Groups()[0].Messages[1].Text())
}

func TestLogoutClearsLoadedState(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		return pageOf("m1", "m2"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")
	_, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, a.Messages(), 2)

	a.Logout()
	assert.Empty(t, a.Messages())
	assert.Empty(t, a.Groups())

	// while unauthorized, fetching is suppressed
	action, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScrollNone, action)

	a.SetAuthorized(true)
	_, err = a.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, a.Messages())
}

func TestScrollbackKeepsGroupingConsistent(t *testing.T) {
	older := pageOf("m1", "m2")
	newerBase := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	newer := []models.Message{
		{ID: "m3", ChannelID: "general", AuthorID: "bob", AuthorUsername: "bob", CreatedAt: newerBase},
		{ID: "m4", ChannelID: "general", AuthorID: "bob", AuthorUsername: "bob", CreatedAt: newerBase.Add(time.Minute)},
	}
	pages := map[string][]models.Message{"": newer, "m3": older}
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		return pages[beforeID], nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")
	_, err := a.Fetch(context.Background())
	require.NoError(t, err)
	_, err = a.Fetch(context.Background())
	require.NoError(t, err)

	groups := a.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "alice", groups[0].AuthorID)
	assert.Equal(t, "bob", groups[1].AuthorID)

	full := GroupMessages(a.Messages(), nil)
	assert.Equal(t, full, groups)
}

func TestFetchErrorClearsFetchingFlag(t *testing.T) {
	failing := true
	fetcher := fetcherFunc(func(ctx context.Context, channelID, beforeID string) ([]models.Message, error) {
		if failing {
			return nil, fmt.Errorf("network down")
		}
		return pageOf("m1"), nil
	})

	a := NewAssembler(fetcher)
	a.EnterChannel("general")

	_, err := a.Fetch(context.Background())
	require.Error(t, err)

	failing = false
	action, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScrollToBottom, action)
}
