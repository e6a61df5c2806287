// Package party owns all mutable sync state: the roster of confirmed members,
// the single pending inbound request, and the local user's skin selections.
// A single goroutine serializes every mutation; everything else talks to it
// through typed messages on the inbox, so the scanner, the HTTP layer and the
// resolver can never race each other on roster state.
package party

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/transport"
	"github.com/BananaLabs/oss-companion/internal/types"
)

var (
	ErrCapacityExceeded = errors.New("party is full")
	ErrDuplicateMember  = errors.New("already in party")
	ErrNoPendingRequest = errors.New("no matching pending request or party member")
)

type msg interface{ isPartyMsg() }

type submitRequestMsg struct {
	FriendID   string
	FriendName string
	Reply      chan error
}

type acceptMsg struct {
	FriendID   string
	FriendName string
	Reply      chan error
}

type rejectMsg struct {
	FriendID string
	Reply    chan error
}

type requestReceivedMsg struct {
	FromID   string
	FromName string
	Token    string
}

type acceptReceivedMsg struct {
	FromID  string
	Payload types.SyncPayload
}

type rejectReceivedMsg struct{ FromID string }

type refreshPresenceMsg struct{ Friends []types.Friend }

type setSelectionMsg struct{ Selection types.SkinSelection }

type clearSelectionMsg struct{ ChampionID int }

type getStateMsg struct{ Reply chan View }

type subscribeMsg struct {
	ClientID string
	Outbox   chan Snapshot
}

type unsubscribeMsg struct{ ClientID string }

type shutdownMsg struct{}

func (submitRequestMsg) isPartyMsg()   {}
func (acceptMsg) isPartyMsg()          {}
func (rejectMsg) isPartyMsg()          {}
func (requestReceivedMsg) isPartyMsg() {}
func (acceptReceivedMsg) isPartyMsg()  {}
func (rejectReceivedMsg) isPartyMsg()  {}
func (refreshPresenceMsg) isPartyMsg() {}
func (setSelectionMsg) isPartyMsg()    {}
func (clearSelectionMsg) isPartyMsg()  {}
func (getStateMsg) isPartyMsg()        {}
func (subscribeMsg) isPartyMsg()       {}
func (unsubscribeMsg) isPartyMsg()     {}
func (shutdownMsg) isPartyMsg()        {}

// Snapshot is what subscribed UI clients receive on every state change.
type Snapshot struct {
	Version int                       `json:"version"`
	Members []types.PartyMember       `json:"members"`
	Pending *types.PendingSyncRequest `json:"pending"`
}

// View is a consistent copy of the full service state.
type View struct {
	Version    int
	Members    []types.PartyMember
	Pending    *types.PendingSyncRequest
	Selections map[int]types.SkinSelection
	Resolved   map[string]bool
}

// InRoster reports whether the friend is a confirmed (or placeholder) member.
func (v View) InRoster(friendID string) bool {
	for _, m := range v.Members {
		if m.ID == friendID {
			return true
		}
	}
	return false
}

// Config carries the service's tunables.
type Config struct {
	// SendTimeout bounds each outbound chat message.
	SendTimeout time.Duration
	// StaleAfter is how long a roster member may go unseen before the
	// presence refresh prunes them.
	StaleAfter time.Duration
}

func (c *Config) fillDefaults() {
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 24 * time.Hour
	}
}

// Service is the party sync state machine. All fields below inbox are owned by
// the loop goroutine and must never be touched from outside it.
type Service struct {
	inbox chan msg
	cfg   Config
	chat  transport.Chat
	log   *zap.SugaredLogger

	members    []*types.PartyMember // insertion order is resolution order
	pending    *types.PendingSyncRequest
	selections map[int]types.SkinSelection
	resolved   map[string]bool // friend ids whose inbound request was accepted/rejected this session
	version    int
	clients    map[string]chan Snapshot

	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(parent context.Context, chat transport.Chat, cfg Config, log *zap.SugaredLogger) *Service {
	cfg.fillDefaults()
	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		inbox:      make(chan msg, 64),
		cfg:        cfg,
		chat:       chat,
		log:        log,
		selections: make(map[int]types.SkinSelection),
		resolved:   make(map[string]bool),
		clients:    make(map[string]chan Snapshot),
		ctx:        ctx,
		cancel:     cancel,
	}
	go s.loop()
	return s
}

func (s *Service) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case submitRequestMsg:
				msg.Reply <- s.handleSubmitRequest(msg.FriendID, msg.FriendName)
			case acceptMsg:
				msg.Reply <- s.handleAccept(msg.FriendID, msg.FriendName)
			case rejectMsg:
				msg.Reply <- s.handleReject(msg.FriendID)
			case requestReceivedMsg:
				s.handleRequestReceived(msg.FromID, msg.FromName, msg.Token)
			case acceptReceivedMsg:
				s.handleAcceptReceived(msg.FromID, msg.Payload)
			case rejectReceivedMsg:
				s.handleRejectReceived(msg.FromID)
			case refreshPresenceMsg:
				s.handleRefreshPresence(msg.Friends)
			case setSelectionMsg:
				s.selections[msg.Selection.ChampionID] = msg.Selection
			case clearSelectionMsg:
				delete(s.selections, msg.ChampionID)
			case getStateMsg:
				msg.Reply <- s.view()
			case subscribeMsg:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()
			case unsubscribeMsg:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}
			case shutdownMsg:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Service) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

// bump marks a state change and pushes a fresh snapshot to every subscriber.
// Slow subscribers are dropped rather than allowed to stall the loop.
func (s *Service) bump() {
	s.version++
	snap := s.snapshot()
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Service) snapshot() Snapshot {
	return Snapshot{
		Version: s.version,
		Members: s.copyMembers(),
		Pending: s.copyPending(),
	}
}

func (s *Service) view() View {
	selections := make(map[int]types.SkinSelection, len(s.selections))
	for k, v := range s.selections {
		selections[k] = v
	}
	resolved := make(map[string]bool, len(s.resolved))
	for k, v := range s.resolved {
		resolved[k] = v
	}
	return View{
		Version:    s.version,
		Members:    s.copyMembers(),
		Pending:    s.copyPending(),
		Selections: selections,
		Resolved:   resolved,
	}
}

func (s *Service) copyMembers() []types.PartyMember {
	out := make([]types.PartyMember, 0, len(s.members))
	for _, m := range s.members {
		c := *m
		c.Skins = make(map[int]types.SkinSelection, len(m.Skins))
		for k, v := range m.Skins {
			c.Skins[k] = v
		}
		out = append(out, c)
	}
	return out
}

func (s *Service) copyPending() *types.PendingSyncRequest {
	if s.pending == nil {
		return nil
	}
	c := *s.pending
	return &c
}

func (s *Service) findMember(friendID string) *types.PartyMember {
	for _, m := range s.members {
		if m.ID == friendID {
			return m
		}
	}
	return nil
}

func (s *Service) removeMember(friendID string) bool {
	for i, m := range s.members {
		if m.ID == friendID {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return true
		}
	}
	return false
}

// --- public API ---------------------------------------------------------

// SubmitRequest sends a sync request to a friend and inserts a placeholder
// roster entry once the send succeeds. The placeholder's skins stay empty
// until the friend's accept arrives.
func (s *Service) SubmitRequest(friendID, friendName string) error {
	reply := make(chan error, 1)
	s.inbox <- submitRequestMsg{FriendID: friendID, FriendName: friendName, Reply: reply}
	return <-reply
}

// Accept confirms the pending inbound request from friendID: the requester
// joins the roster with the skins their request carried, and our own current
// selections are sent back.
func (s *Service) Accept(friendID, friendName string) error {
	reply := make(chan error, 1)
	s.inbox <- acceptMsg{FriendID: friendID, FriendName: friendName, Reply: reply}
	return <-reply
}

// Reject is state-keyed: it declines the pending request when friendID matches
// it, and otherwise removes friendID from the roster. Both paths notify the
// friend.
func (s *Service) Reject(friendID string) error {
	reply := make(chan error, 1)
	s.inbox <- rejectMsg{FriendID: friendID, Reply: reply}
	return <-reply
}

// HandleRequest feeds an inbound request found by the scanner.
func (s *Service) HandleRequest(fromID, fromName, token string) {
	s.inbox <- requestReceivedMsg{FromID: fromID, FromName: fromName, Token: token}
}

// HandleAccept feeds an accept response found by the scanner.
func (s *Service) HandleAccept(fromID string, payload types.SyncPayload) {
	s.inbox <- acceptReceivedMsg{FromID: fromID, Payload: payload}
}

// HandleReject feeds a reject response found by the scanner.
func (s *Service) HandleReject(fromID string) {
	s.inbox <- rejectReceivedMsg{FromID: fromID}
}

// RefreshPresence updates roster members' availability from a fresh friends
// list and prunes members unseen for longer than the retention threshold.
func (s *Service) RefreshPresence(friends []types.Friend) {
	s.inbox <- refreshPresenceMsg{Friends: friends}
}

// SetSelection records the local user's skin choice for a champion.
func (s *Service) SetSelection(sel types.SkinSelection) {
	s.inbox <- setSelectionMsg{Selection: sel}
}

// ClearSelection drops the local user's skin choice for a champion.
func (s *Service) ClearSelection(championID int) {
	s.inbox <- clearSelectionMsg{ChampionID: championID}
}

// State returns a consistent copy of the current service state.
func (s *Service) State() View {
	reply := make(chan View, 1)
	s.inbox <- getStateMsg{Reply: reply}
	return <-reply
}

// Subscribe registers an outbox for snapshot pushes. The current snapshot is
// delivered immediately.
func (s *Service) Subscribe(clientID string, outbox chan Snapshot) {
	s.inbox <- subscribeMsg{ClientID: clientID, Outbox: outbox}
}

// Unsubscribe removes a snapshot subscriber and closes its outbox.
func (s *Service) Unsubscribe(clientID string) {
	s.inbox <- unsubscribeMsg{ClientID: clientID}
}

// Shutdown stops the loop and closes all subscriber outboxes.
func (s *Service) Shutdown() {
	s.inbox <- shutdownMsg{}
}
