package party

import (
	"context"
	"fmt"

	"github.com/BananaLabs/oss-companion/internal/codec"
	"github.com/BananaLabs/oss-companion/internal/types"
)

// send builds a framed sync message of the given kind and delivers it through
// the chat transport. Rejects always carry an empty selection list.
func (s *Service) send(friendID string, kind types.RequestType, skins []types.SkinSelection) error {
	if skins == nil {
		skins = []types.SkinSelection{}
	}
	payload := types.SyncPayload{
		UserSkins:   skins,
		RequestType: kind,
		Version:     types.PayloadVersion,
	}
	token, err := codec.Encode(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := s.chat.SendMessage(ctx, friendID, codec.Frame(token)); err != nil {
		s.log.Warnw("could not deliver sync message", "friend", friendID, "kind", kind, "err", err)
		return fmt.Errorf("send %s to %s: %w", kind, friendID, err)
	}
	return nil
}
