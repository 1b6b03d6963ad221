// internal/engine/handlers_secret.go
package engine

import (
	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// SecretHandlers resolves the transfer phase of secret questions.
type SecretHandlers struct {
	router *Router
}

// NewSecretHandlers builds the secret handler set.
func NewSecretHandlers(router *Router) *SecretHandlers {
	return &SecretHandlers{router: router}
}

type secretTransferPayload struct {
	TargetPlayerID uuid.UUID `json:"targetPlayerId"`
}

// Transfer lets the picker nominate who answers the secret question. The
// transfer type on the question constrains the legal targets.
func (h *SecretHandlers) Transfer(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateSecretTransfer); err != nil {
		return nil, err
	}
	g := hc.Game
	sec := g.State.Secret
	if sec == nil || !sec.TransferPhase {
		return nil, NewClientError(CodeInvalidPhase, "no secret transfer in progress")
	}
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	if p.ID != sec.PickerID {
		return nil, NewClientError(CodeNotYourTurn, "only the picker may transfer this question")
	}

	var pl secretTransferPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}

	target := g.PlayerByID(pl.TargetPlayerID)
	if target == nil || !target.IsActivePlayer() {
		return nil, NewClientError(CodePlayerNotFound, "transfer target is not an active player")
	}

	switch sec.TransferType {
	case models.TransferToOther:
		if target.ID == p.ID {
			return nil, NewClientError(CodeValidation, "this question must be given to another player")
		}
	case models.TransferToSelf:
		if target.ID != p.ID {
			return nil, NewClientError(CodeValidation, "this question can only be kept")
		}
	}

	q, err := hc.Questions.GetQuestion(hc.Ctx, g.ID.String(), sec.QuestionID)
	if err != nil {
		return nil, NewServerError("load secret question %s: %v", sec.QuestionID, err)
	}
	if q == nil {
		return nil, NewServerError("secret question %s missing from package", sec.QuestionID)
	}

	sec.TransferPhase = false
	g.State.EligiblePlayers = []uuid.UUID{target.ID}
	muts := h.router.BeginAnswering(g, target.ID)
	muts = append(muts,
		mutation.SaveGame{Game: g},
		mutation.Broadcast{
			Event: broadcast.Event{
				Type:   broadcast.EventSecretTransfer,
				Target: broadcast.TargetGame,
				Payload: map[string]interface{}{
					"fromPlayerId": p.ID,
					"toPlayerId":   target.ID,
				},
			},
		},
		snapshotBroadcast(broadcast.EventGameUpdated),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}
