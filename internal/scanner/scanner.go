// Package scanner polls friends' conversation histories for framed sync
// tokens and feeds them into the party service. It is the only reader of the
// chat transport; decode failures never leave this package.
package scanner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/codec"
	"github.com/BananaLabs/oss-companion/internal/party"
	"github.com/BananaLabs/oss-companion/internal/transport"
	"github.com/BananaLabs/oss-companion/internal/types"
)

// Config carries the scanner's polling policy. The response interval drives
// the ticker; full scans additionally require FullScanInterval to have elapsed
// unless forced.
type Config struct {
	FullScanInterval     time.Duration
	ResponseScanInterval time.Duration
}

func (c *Config) fillDefaults() {
	if c.FullScanInterval <= 0 {
		c.FullScanInterval = 30 * time.Second
	}
	if c.ResponseScanInterval <= 0 {
		c.ResponseScanInterval = 10 * time.Second
	}
}

type Scanner struct {
	chat  transport.Chat
	party *party.Service
	cfg   Config
	log   *zap.SugaredLogger

	lastFull time.Time
	// processed remembers accept/reject messages already applied, keyed by
	// friend id + message id, so rescanning unchanged history stays idempotent.
	processed map[string]struct{}

	force chan struct{}
}

func New(chat transport.Chat, svc *party.Service, cfg Config, log *zap.SugaredLogger) *Scanner {
	cfg.fillDefaults()
	return &Scanner{
		chat:      chat,
		party:     svc,
		cfg:       cfg,
		log:       log,
		processed: make(map[string]struct{}),
		force:     make(chan struct{}, 1),
	}
}

// Force requests an immediate full scan on the next tick, bypassing the
// throttle. Used when the party UI opens or the friends list changes.
func (s *Scanner) Force() {
	select {
	case s.force <- struct{}{}:
	default:
	}
}

// Run drives the polling loop until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ResponseScanInterval)
	defer ticker.Stop()

	s.PollOnce(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.force:
			s.PollOnce(ctx, true)
		case <-ticker.C:
			s.PollOnce(ctx, false)
		}
	}
}

// PollOnce scans every friend's recent history once. Without force, request
// scanning is throttled to the full-scan interval; accept/reject responses
// for roster members are matched on every pass.
func (s *Scanner) PollOnce(ctx context.Context, force bool) {
	now := time.Now()
	fullScan := force || now.Sub(s.lastFull) >= s.cfg.FullScanInterval
	if fullScan {
		s.lastFull = now
	}

	friends, err := s.chat.ListFriends(ctx)
	if err != nil {
		s.log.Debugw("friends list unavailable", "err", err)
		return
	}
	s.party.RefreshPresence(friends)

	view := s.party.State()
	for _, friend := range friends {
		// A transport failure for one friend must not abort the rest.
		if s.scanFriend(ctx, friend, &view, fullScan) {
			// First qualifying request wins globally; stop the pass.
			return
		}
	}
}

// scanFriend inspects one friend's history, newest to oldest, and acts on the
// newest decodable sync message. It reports whether a new pending request was
// surfaced, which ends the whole pass.
func (s *Scanner) scanFriend(ctx context.Context, friend types.Friend, view *party.View, fullScan bool) bool {
	msgs, err := s.chat.FetchRecentMessages(ctx, friend.ID)
	if err != nil {
		s.log.Debugw("could not fetch messages", "friend", friend.Name, "err", err)
		return false
	}

	for i := len(msgs) - 1; i >= 0; i-- {
		// Conversation history contains both sides; our own sync messages are
		// not inbound protocol traffic.
		if msgs[i].FromID != "" && msgs[i].FromID != friend.ID {
			continue
		}
		token, ok := codec.ScanForFramed(msgs[i].Body)
		if !ok {
			continue
		}
		payload, err := codec.Decode(token)
		if err != nil {
			// Not for us, or mangled in transit. Keep looking at older messages.
			s.log.Debugw("skipping undecodable sync token", "friend", friend.Name, "err", err)
			continue
		}

		switch payload.RequestType {
		case types.RequestTypeRequest:
			if !fullScan {
				return false
			}
			if view.Pending != nil || view.Resolved[friend.ID] || view.InRoster(friend.ID) {
				return false
			}
			s.party.HandleRequest(friend.ID, friend.Name, token)
			*view = s.party.State()
			return view.Pending != nil

		case types.RequestTypeAccept:
			key := processedKey(friend.ID, msgs[i].ID, token)
			if _, done := s.processed[key]; !done && view.InRoster(friend.ID) {
				s.processed[key] = struct{}{}
				s.party.HandleAccept(friend.ID, payload)
				*view = s.party.State()
			}
			return false

		case types.RequestTypeReject:
			key := processedKey(friend.ID, msgs[i].ID, token)
			if _, done := s.processed[key]; !done {
				s.processed[key] = struct{}{}
				s.party.HandleReject(friend.ID)
				*view = s.party.State()
			}
			return false
		}
	}
	return false
}

// processedKey identifies one applied response. Message ids disambiguate two
// byte-identical rejects sent at different times; the token is kept as a
// fallback for transports that do not assign ids.
func processedKey(friendID, msgID, token string) string {
	if msgID != "" {
		return friendID + "\x00" + msgID
	}
	return friendID + "\x00" + token
}
