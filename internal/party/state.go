package party

import (
	"time"

	"github.com/BananaLabs/oss-companion/internal/codec"
	"github.com/BananaLabs/oss-companion/internal/types"
)

// Transition handlers. All of them run on the loop goroutine. User-triggered
// transitions send first and mutate only after the send succeeded, so a
// transport failure leaves the state exactly as it was before the action.

func (s *Service) handleSubmitRequest(friendID, friendName string) error {
	if s.findMember(friendID) != nil {
		return ErrDuplicateMember
	}
	if len(s.members) >= types.MaxPartySize {
		return ErrCapacityExceeded
	}

	if err := s.send(friendID, types.RequestTypeRequest, s.ownSkins()); err != nil {
		return err
	}

	s.members = append(s.members, &types.PartyMember{
		ID:           friendID,
		Name:         friendName,
		Availability: types.AvailabilityOnline,
		Skins:        make(map[int]types.SkinSelection),
		LastSeenAt:   time.Now(),
	})
	s.log.Infow("sync request sent", "friend", friendName)
	s.bump()
	return nil
}

func (s *Service) handleAccept(friendID, friendName string) error {
	if s.pending == nil || s.pending.FromMemberID != friendID {
		return ErrNoPendingRequest
	}

	payload, err := codec.Decode(s.pending.Token)
	if err != nil {
		// The retained token no longer decodes; drop the request entirely.
		s.pending = nil
		s.bump()
		return err
	}

	existing := s.findMember(friendID)
	if existing == nil && len(s.members) >= types.MaxPartySize {
		// The request stays pending so the user can still reject it.
		return ErrCapacityExceeded
	}

	if err := s.send(friendID, types.RequestTypeAccept, s.ownSkins()); err != nil {
		return err
	}

	skins := make(map[int]types.SkinSelection, len(payload.UserSkins))
	for _, sel := range payload.UserSkins {
		skins[sel.ChampionID] = sel
	}
	if existing != nil {
		existing.Name = friendName
		existing.Skins = skins
		existing.LastSeenAt = time.Now()
	} else {
		s.members = append(s.members, &types.PartyMember{
			ID:           friendID,
			Name:         friendName,
			Availability: types.AvailabilityOnline,
			Skins:        skins,
			LastSeenAt:   time.Now(),
		})
	}
	s.pending = nil
	s.resolved[friendID] = true
	s.log.Infow("sync request accepted", "friend", friendName, "skins", len(skins))
	s.bump()
	return nil
}

func (s *Service) handleReject(friendID string) error {
	if s.pending != nil && s.pending.FromMemberID == friendID {
		// Declining an invite. The roster is untouched.
		if err := s.send(friendID, types.RequestTypeReject, nil); err != nil {
			return err
		}
		s.pending = nil
		s.resolved[friendID] = true
		s.log.Infow("sync request rejected", "friend", friendID)
		s.bump()
		return nil
	}

	if s.findMember(friendID) != nil {
		// Leaving/kicking a confirmed member. The pending slot is untouched.
		if err := s.send(friendID, types.RequestTypeReject, nil); err != nil {
			return err
		}
		s.removeMember(friendID)
		s.log.Infow("removed from party", "friend", friendID)
		s.bump()
		return nil
	}

	return ErrNoPendingRequest
}

func (s *Service) handleRequestReceived(fromID, fromName, token string) {
	if s.resolved[fromID] {
		// Already accepted or rejected this session; do not resurface.
		return
	}
	if s.findMember(fromID) != nil {
		return
	}
	if s.pending != nil && s.pending.FromMemberID == fromID {
		return
	}
	s.pending = &types.PendingSyncRequest{
		FromMemberID:   fromID,
		FromMemberName: fromName,
		Token:          token,
		ReceivedAt:     time.Now(),
	}
	s.log.Infow("pending sync request", "friend", fromName)
	s.bump()
}

func (s *Service) handleAcceptReceived(fromID string, payload types.SyncPayload) {
	member := s.findMember(fromID)
	if member == nil {
		// We never asked this friend; stale or unsolicited accept.
		return
	}
	skins := make(map[int]types.SkinSelection, len(payload.UserSkins))
	for _, sel := range payload.UserSkins {
		skins[sel.ChampionID] = sel
	}
	member.Skins = skins
	member.LastSeenAt = time.Now()
	s.log.Infow("sync request accepted by friend", "friend", member.Name, "skins", len(skins))
	s.bump()
}

func (s *Service) handleRejectReceived(fromID string) {
	if s.removeMember(fromID) {
		s.log.Infow("sync request rejected by friend", "friend", fromID)
		s.bump()
	}
}

func (s *Service) handleRefreshPresence(friends []types.Friend) {
	byID := make(map[string]types.Friend, len(friends))
	for _, f := range friends {
		byID[f.ID] = f
	}

	now := time.Now()
	changed := false
	kept := s.members[:0]
	for _, m := range s.members {
		if f, ok := byID[m.ID]; ok {
			if m.Availability != f.Availability || m.Name != f.Name {
				changed = true
			}
			m.Availability = f.Availability
			m.Name = f.Name
			m.LastSeenAt = now
			kept = append(kept, m)
			continue
		}
		if now.Sub(m.LastSeenAt) > s.cfg.StaleAfter {
			s.log.Infow("pruning stale party member", "friend", m.Name)
			changed = true
			continue
		}
		kept = append(kept, m)
	}
	s.members = kept
	if changed {
		s.bump()
	}
}

func (s *Service) ownSkins() []types.SkinSelection {
	out := make([]types.SkinSelection, 0, len(s.selections))
	for _, sel := range s.selections {
		out = append(out, sel)
	}
	return out
}
