package timeline

import (
	"context"
	"sync"

	"channel-chat-service/internal/models"
)

// Fetcher loads one page of channel history. An empty beforeID asks for the
// newest page; otherwise the page strictly older than that message.
type Fetcher interface {
	FetchPage(ctx context.Context, channelID, beforeID string) ([]models.Message, error)
}

// ScrollAction tells the caller how to adjust the viewport after a state
// change. The assembler itself never measures pixels; the caller reports
// scroll state in and gets an instruction out.
type ScrollAction int

const (
	// ScrollNone leaves the viewport alone.
	ScrollNone ScrollAction = iota
	// ScrollToBottom jumps to the newest message after the initial load.
	ScrollToBottom
	// ScrollRestoreAnchor re-anchors the previously topmost content after
	// older history was prepended above it.
	ScrollRestoreAnchor
	// ScrollRevealNew scrolls a freshly pushed message into view because
	// the user was already near the bottom.
	ScrollRevealNew
)

// Assembler reconstructs a scroll-stable message timeline for one channel
// at a time from paged fetches and live push events.
type Assembler struct {
	mu      sync.Mutex
	fetcher Fetcher

	channelID string
	epoch     int // bumped on channel switch; stale fetch results are discarded

	list       []models.Message // oldest first; nil means "not loaded"
	groups     []Group
	loaded     bool
	fetching   bool
	fetchedAll bool

	authorized   bool
	nearBottom   bool
	anchorOffset float64
}

// NewAssembler builds an Assembler over the given fetcher.
func NewAssembler(fetcher Fetcher) *Assembler {
	return &Assembler{fetcher: fetcher, authorized: true}
}

// SetAuthorized records whether the server will serve history to us.
// While unauthorized no fetch is attempted.
func (a *Assembler) SetAuthorized(authorized bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authorized = authorized
}

// EnterChannel resets all per-channel state and makes channelID the active
// channel. A fetch still in flight for the previous channel will find the
// epoch changed and discard its result.
func (a *Assembler) EnterChannel(channelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channelID = channelID
	a.epoch++
	a.list = nil
	a.groups = nil
	a.loaded = false
	a.fetching = false
	a.fetchedAll = false
	a.nearBottom = true
	a.anchorOffset = 0
}

// ActiveChannel returns the channel currently being assembled.
func (a *Assembler) ActiveChannel() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channelID
}

// SetScrollState records the viewport position: whether the user is near
// the bottom, and the current offset of the oldest rendered content used to
// re-anchor after scrollback.
func (a *Assembler) SetScrollState(nearBottom bool, anchorOffset float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nearBottom = nearBottom
	a.anchorOffset = anchorOffset
}

// AnchorOffset returns the offset recorded before the latest scrollback,
// for callers executing a ScrollRestoreAnchor action.
func (a *Assembler) AnchorOffset() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.anchorOffset
}

// Fetch loads the next page: the newest page if nothing is loaded yet,
// otherwise the page older than the oldest message held. Only one fetch
// runs at a time; calls while one is in flight, after history is exhausted,
// or while unauthorized are no-ops.
func (a *Assembler) Fetch(ctx context.Context) (ScrollAction, error) {
	a.mu.Lock()
	if !a.authorized || a.fetching || a.fetchedAll || a.channelID == "" {
		a.mu.Unlock()
		return ScrollNone, nil
	}
	a.fetching = true
	channelID := a.channelID
	epoch := a.epoch
	initial := !a.loaded
	before := ""
	if a.loaded && len(a.list) > 0 {
		before = a.list[0].ID
	}
	a.mu.Unlock()

	msgs, err := a.fetcher.FetchPage(ctx, channelID, before)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.epoch != epoch {
		// The channel changed while the fetch was in flight; the result
		// belongs to a channel the user is no longer looking at.
		return ScrollNone, nil
	}
	a.fetching = false
	if err != nil {
		return ScrollNone, err
	}

	if len(msgs) == 0 {
		a.fetchedAll = true
		if !a.loaded {
			a.loaded = true
			a.list = []models.Message{}
			a.groups = []Group{}
		}
		return ScrollNone, nil
	}

	// Live pushes may have landed while the fetch was in flight; drop any
	// page entries we already hold so nothing is duplicated.
	held := make(map[string]struct{}, len(a.list))
	for _, m := range a.list {
		held[m.ID] = struct{}{}
	}
	merged := make([]models.Message, 0, len(msgs)+len(a.list))
	for _, m := range msgs {
		if _, ok := held[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	merged = append(merged, a.list...)

	a.list = merged
	a.groups = GroupMessages(a.list, nil)
	a.loaded = true

	if initial {
		return ScrollToBottom, nil
	}
	return ScrollRestoreAnchor, nil
}

// HandleMessage appends a pushed message for the active channel, extending
// the existing grouping incrementally. Messages for other channels and
// duplicates are ignored.
func (a *Assembler) HandleMessage(msg models.Message) ScrollAction {
	a.mu.Lock()
	defer a.mu.Unlock()

	if msg.ChannelID != a.channelID || a.channelID == "" {
		return ScrollNone
	}
	for _, m := range a.list {
		if m.ID == msg.ID {
			return ScrollNone
		}
	}

	a.groups = GroupMessages([]models.Message{msg}, a.groups)
	a.list = append(a.list, msg)

	if a.nearBottom {
		return ScrollRevealNew
	}
	return ScrollNone
}

// HandleEdit overwrites an edited message in place, in the list and in its
// group. Grouping keys off author and creation time, neither of which an
// edit changes, so no regrouping happens.
func (a *Assembler) HandleEdit(msg models.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if msg.ChannelID != a.channelID {
		return
	}

	for i := range a.list {
		if a.list[i].ID == msg.ID {
			a.list[i] = msg
			break
		}
	}
	for gi := range a.groups {
		for mi := range a.groups[gi].Messages {
			if a.groups[gi].Messages[mi].ID == msg.ID {
				a.groups[gi].Messages[mi] = msg
				return
			}
		}
	}
}

// Logout clears loaded content: an unauthenticated viewer must not retain
// previously authorized history.
func (a *Assembler) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authorized = false
	a.list = []models.Message{}
	a.groups = []Group{}
}

// Loaded reports whether any page has been fetched for the active channel.
func (a *Assembler) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// FetchedAll reports whether the beginning of the channel was reached.
func (a *Assembler) FetchedAll() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetchedAll
}

// Messages returns the assembled timeline, oldest first.
func (a *Assembler) Messages() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Message, len(a.list))
	copy(out, a.list)
	return out
}

// Groups returns the current grouping of the timeline.
func (a *Assembler) Groups() []Group {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Group, len(a.groups))
	copy(out, a.groups)
	return out
}
