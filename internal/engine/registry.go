// internal/engine/registry.go
package engine

import (
	"github.com/sigmahub/trivia-engine/internal/config"
	"github.com/sigmahub/trivia-engine/internal/models"
)

// BuildRegistry wires every action type to its handler. Validate is called
// before returning, so a missing or duplicate route fails at startup rather
// than on the first live action.
func BuildRegistry(cfg *config.Config) (*Registry, error) {
	router := NewRouter(cfg)
	lobby := NewLobbyHandlers(router)
	flow := NewFlowHandlers(router)
	stake := NewStakeHandlers(router)
	secret := NewSecretHandlers(router)
	final := NewFinalHandlers(router)
	timer := NewTimerHandlers(router, flow)

	r := NewRegistry()

	r.Register(HandlerFunc(lobby.Join), models.ActionPlayerJoin)
	r.Register(HandlerFunc(lobby.Ready), models.ActionPlayerReady)
	r.Register(HandlerFunc(lobby.Start), models.ActionStart)
	r.Register(HandlerFunc(lobby.Leave), models.ActionPlayerLeave)
	r.Register(HandlerFunc(lobby.Kick), models.ActionPlayerKick)
	r.Register(HandlerFunc(lobby.Disconnect), models.ActionPlayerDisconnect)
	r.Register(HandlerFunc(lobby.Reconnect), models.ActionPlayerReconnect)
	r.Register(HandlerFunc(lobby.RoleChange), models.ActionRoleChange)
	r.Register(HandlerFunc(lobby.ScoreChange), models.ActionScoreChange)
	r.Register(HandlerFunc(lobby.SlotChange), models.ActionSlotChange)
	r.Register(HandlerFunc(lobby.Pause), models.ActionPause)
	r.Register(HandlerFunc(lobby.Unpause), models.ActionUnpause)
	r.Register(HandlerFunc(lobby.Finish), models.ActionFinishGame)

	r.Register(HandlerFunc(flow.Pick), models.ActionPickQuestion)
	r.Register(HandlerFunc(flow.AnswerRequest), models.ActionAnswerRequest)
	r.Register(HandlerFunc(flow.AnswerSubmit), models.ActionAnswerSubmit)
	r.Register(HandlerFunc(flow.AnswerResult), models.ActionAnswerResult)
	r.Register(HandlerFunc(flow.Skip), models.ActionSkipQuestion)
	r.Register(HandlerFunc(flow.ForceSkip), models.ActionForceSkip)
	r.Register(HandlerFunc(flow.Unskip), models.ActionUnskipQuestion)
	r.Register(HandlerFunc(flow.ShowAnswer), models.ActionShowAnswer)
	r.Register(HandlerFunc(flow.NextRound), models.ActionNextRound)

	r.Register(HandlerFunc(stake.Bid), models.ActionStakeBid)
	r.Register(HandlerFunc(secret.Transfer), models.ActionSecretTransfer)
	r.Register(HandlerFunc(final.ThemeEliminate), models.ActionFinalThemeEliminate)
	r.Register(HandlerFunc(final.Bid), models.ActionFinalBid)
	r.Register(HandlerFunc(final.AnswerSubmit), models.ActionFinalAnswerSubmit)
	r.Register(HandlerFunc(final.AnswerReview), models.ActionFinalAnswerReview)

	r.Register(HandlerFunc(timer.Expired),
		models.ActionQuestionTimerExpired,
		models.ActionAnsweringTimerExpired,
		models.ActionBiddingTimerExpired,
		models.ActionFinalPhaseTimerExpired,
	)

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
