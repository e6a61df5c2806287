// Package resolve decides whose skin applies to a champion at injection time.
// The precedence is deterministic: the local user's own selection wins, then
// the first roster member (in insertion order) with a selection for that
// champion.
package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/inject"
	"github.com/BananaLabs/oss-companion/internal/party"
	"github.com/BananaLabs/oss-companion/internal/types"
)

type Engine struct {
	party    *party.Service
	injector inject.Injector
	log      *zap.SugaredLogger
}

func NewEngine(svc *party.Service, injector inject.Injector, log *zap.SugaredLogger) *Engine {
	return &Engine{party: svc, injector: injector, log: log}
}

// SkinForChampion returns the selection that should be injected for the
// champion, and the name of the party member it came from ("" when it is the
// local user's own pick). ok is false when nobody has a selection.
func (e *Engine) SkinForChampion(championID int) (sel types.SkinSelection, owner string, ok bool) {
	view := e.party.State()
	if own, found := view.Selections[championID]; found {
		return own, "", true
	}
	for _, m := range view.Members {
		if theirs, found := m.Skins[championID]; found {
			return theirs, m.Name, true
		}
	}
	return types.SkinSelection{}, "", false
}

// ApplyForChampion resolves and injects the skin for a champion. Doing nothing
// is not an error: without any selection the game just shows the default skin.
func (e *Engine) ApplyForChampion(ctx context.Context, championID int) error {
	sel, owner, ok := e.SkinForChampion(championID)
	if !ok {
		return nil
	}
	if owner != "" {
		e.log.Infow("using party member's skin", "champion", championID, "member", owner)
	}
	return e.injector.ApplySkin(ctx, championID, sel)
}
