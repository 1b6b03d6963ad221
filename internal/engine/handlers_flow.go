// internal/engine/handlers_flow.go
package engine

import (
	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// FlowHandlers covers the ordinary question loop: pick, buzz, answer,
// verdict, skip and round advancement.
type FlowHandlers struct {
	router *Router
}

// NewFlowHandlers builds the ordinary-flow handler set.
func NewFlowHandlers(router *Router) *FlowHandlers {
	return &FlowHandlers{router: router}
}

type pickPayload struct {
	QuestionID string `json:"questionId"`
}

// Pick takes a question off the board. Only the current turn player or the
// showman may pick; stake and secret questions branch into their
// sub-protocols here.
func (h *FlowHandlers) Pick(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateChoosing); err != nil {
		return nil, err
	}
	g := hc.Game
	actor := hc.CurrentPlayer
	if actor == nil {
		return nil, NewClientError(CodePlayerNotFound, "no player bound to this socket")
	}
	if actor.Role != models.RoleShowman && actor.ID != g.State.CurrentTurnPlayerID {
		return nil, NewClientError(CodeNotYourTurn, "it is not your turn to pick")
	}

	var pl pickPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	if g.State.QuestionPlayed(pl.QuestionID) {
		return nil, NewClientError(CodeValidation, "question already played")
	}
	q, err := hc.Questions.GetQuestion(hc.Ctx, g.ID.String(), pl.QuestionID)
	if err != nil {
		return nil, NewServerError("load question %s: %v", pl.QuestionID, err)
	}
	if q == nil {
		return nil, NewClientError(CodeQuestionNotFound, "question %s not on this board", pl.QuestionID)
	}

	picker := g.State.CurrentTurnPlayerID
	var muts []mutation.Mutation
	switch q.Type {
	case models.QuestionStake:
		muts = h.beginStake(hc, q, picker)
	case models.QuestionSecret:
		muts = h.beginSecret(g, q, picker)
	default:
		muts = h.router.StartQuestion(g, q)
	}

	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventQuestionPicked),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// beginStake opens the auction. The bidding order starts at the picker and
// wraps around eligible players; a picker who cannot afford the nominal
// price gets an automatic minimal all-in as their forced opening bid.
func (h *FlowHandlers) beginStake(hc *HandlerContext, q *models.Question, picker uuid.UUID) []mutation.Mutation {
	g := hc.Game
	g.State.CurrentQuestionID = q.ID
	g.State.PlayedQuestions = append(g.State.PlayedQuestions, q.ID)

	order := rotateToPicker(g, picker)
	maxPrice := q.MaxPrice
	if maxPrice <= 0 {
		maxPrice = hc.Cfg.MaxStakePrice
	}
	s := &models.StakeQuestionData{
		PickerID:     picker,
		QuestionID:   q.ID,
		BiddingOrder: order,
		Bids:         make(map[uuid.UUID]int),
		MaxPrice:     maxPrice,
		BiddingPhase: true,
	}
	g.State.Stake = s
	g.State.QuestionState = models.StateBidding

	// Forced opening bid the opener cannot afford becomes an all-in.
	if opener := g.PlayerByID(s.CurrentBidder()); opener != nil && opener.Score < q.Price {
		s.Bids[opener.ID] = opener.Score
		s.HighestBid = opener.Score
		s.AllInPlaced = true
		return h.router.AdvanceStake(g)
	}
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerBidding, hc.Cfg.BiddingTimer)},
	}
}

// beginSecret opens the transfer phase: the picker must nominate an answerer.
func (h *FlowHandlers) beginSecret(g *models.Game, q *models.Question, picker uuid.UUID) []mutation.Mutation {
	g.State.CurrentQuestionID = q.ID
	g.State.PlayedQuestions = append(g.State.PlayedQuestions, q.ID)
	g.State.Secret = &models.SecretQuestionData{
		PickerID:      picker,
		TransferType:  q.TransferType,
		QuestionID:    q.ID,
		TransferPhase: true,
	}
	g.State.QuestionState = models.StateSecretTransfer
	return []mutation.Mutation{mutation.TimerDelete{}}
}

// AnswerRequest is a player buzzing in during SHOWING.
func (h *FlowHandlers) AnswerRequest(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateShowing); err != nil {
		return nil, err
	}
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game
	if !g.State.IsEligible(p.ID) {
		return nil, NewClientError(CodeValidation, "you joined after this question started")
	}
	if g.State.HasAnswered(p.ID) {
		return nil, NewClientError(CodeValidation, "you already answered this question")
	}
	if g.State.HasSkipped(p.ID) {
		return nil, NewClientError(CodeValidation, "you skipped this question")
	}

	muts := h.router.BeginAnswering(g, p.ID)
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventAnswerRequest),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

type answerSubmitPayload struct {
	Text string `json:"text"`
}

// AnswerSubmit records the answering player's text for the showman's verdict.
func (h *FlowHandlers) AnswerSubmit(hc *HandlerContext) (*HandlerResult, error) {
	if err := requirePhase(hc, models.StateAnswering); err != nil {
		return nil, err
	}
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game
	if g.State.Final != nil {
		return nil, NewClientError(CodeInvalidPhase, "use the final-round answer action")
	}
	if g.State.AnsweringPlayerID != p.ID {
		return nil, NewClientError(CodeNotYourTurn, "you are not the answering player")
	}
	var pl answerSubmitPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	g.State.PendingAnswerText = pl.Text
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: g},
			// The submitted text goes to the showman only; everyone else just
			// hears that an answer is in.
			mutation.Broadcast{Event: broadcast.Event{
				Type:    broadcast.EventAnswerResult,
				Target:  broadcast.TargetGame,
				Roles:   []models.Role{models.RoleShowman},
				Payload: map[string]interface{}{"playerId": p.ID, "text": pl.Text},
			}},
		},
	}, nil
}

type verdictPayload struct {
	Verdict models.AnswerVerdict `json:"verdict"`
}

// AnswerResult is the showman's correct/wrong call on the current answerer.
func (h *FlowHandlers) AnswerResult(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateAnswering); err != nil {
		return nil, err
	}
	g := hc.Game
	if g.State.Final != nil {
		return nil, NewClientError(CodeInvalidPhase, "use the final-round review action")
	}
	answering := g.State.AnsweringPlayerID
	if answering == uuid.Nil {
		return nil, NewServerError("ANSWERING phase with no answering player in game %s", g.ID)
	}
	var pl verdictPayload
	if err := decode(hc, &pl); err != nil {
		return nil, err
	}
	if pl.Verdict != models.VerdictCorrect && pl.Verdict != models.VerdictWrong {
		return nil, NewClientError(CodeValidation, "verdict must be CORRECT or WRONG")
	}

	price, err := h.currentPrice(hc)
	if err != nil {
		return nil, err
	}
	g.State.PendingAnswerText = ""
	muts := h.router.ApplyVerdict(g, answering, pl.Verdict, price)
	if g.State.Secret != nil {
		// The transferred player finished answering; the secret is consumed.
		g.State.Secret = nil
	}
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventAnswerResult),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// currentPrice resolves what the current question is worth to the answering
// player: the winning bid for a stake question, the printed price otherwise.
func (h *FlowHandlers) currentPrice(hc *HandlerContext) (int, error) {
	g := hc.Game
	if s := g.State.Stake; s != nil && s.WinnerPlayerID != nil {
		return s.Bids[*s.WinnerPlayerID], nil
	}
	q, err := hc.Questions.GetQuestion(hc.Ctx, g.ID.String(), g.State.CurrentQuestionID)
	if err != nil {
		return 0, NewServerError("load question %s: %v", g.State.CurrentQuestionID, err)
	}
	if q == nil {
		return 0, NewServerError("current question %s missing from package", g.State.CurrentQuestionID)
	}
	return q.Price, nil
}

// Skip is a player bowing out of the current question.
func (h *FlowHandlers) Skip(hc *HandlerContext) (*HandlerResult, error) {
	if err := requireUnpaused(hc); err != nil {
		return nil, err
	}
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game
	if g.State.Stake != nil || g.State.Secret != nil || g.State.Final != nil {
		return nil, NewClientError(CodeInvalidPhase, "cannot skip during a special question")
	}
	if err := requirePhase(hc, models.StateShowing); err != nil {
		return nil, err
	}
	if !g.State.IsEligible(p.ID) || g.State.HasAnswered(p.ID) || g.State.HasSkipped(p.ID) {
		return nil, NewClientError(CodeValidation, "you cannot skip this question")
	}

	g.State.SkippedPlayers = append(g.State.SkippedPlayers, p.ID)
	var muts []mutation.Mutation
	if len(h.router.EligibleAnswerers(g)) == 0 {
		muts = h.router.ToShowingAnswer(g)
	}
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventQuestionSkip),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// Unskip lets a player back in before the question resolves.
func (h *FlowHandlers) Unskip(hc *HandlerContext) (*HandlerResult, error) {
	p, err := requirePlayer(hc)
	if err != nil {
		return nil, err
	}
	g := hc.Game
	if err := requirePhase(hc, models.StateShowing); err != nil {
		return nil, err
	}
	if !g.State.HasSkipped(p.ID) {
		return nil, NewClientError(CodeValidation, "you have not skipped this question")
	}
	out := g.State.SkippedPlayers[:0]
	for _, id := range g.State.SkippedPlayers {
		if id != p.ID {
			out = append(out, id)
		}
	}
	g.State.SkippedPlayers = out
	return &HandlerResult{
		Success: true,
		Mutations: []mutation.Mutation{
			mutation.SaveGame{Game: g},
			snapshotBroadcast(broadcast.EventQuestionSkip),
		},
	}, nil
}

// ForceSkip is the showman ending the current question outright.
func (h *FlowHandlers) ForceSkip(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	g := hc.Game
	if err := requirePhase(hc, models.StateShowing, models.StateAnswering); err != nil {
		return nil, err
	}
	if g.State.Final != nil {
		return nil, NewClientError(CodeInvalidPhase, "cannot force-skip the final round")
	}
	muts := h.router.ToShowingAnswer(g)
	g.State.Secret = nil
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventQuestionSkip),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// ShowAnswer is the showman closing the SHOWING_ANSWER beat early.
func (h *FlowHandlers) ShowAnswer(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	if err := requirePhase(hc, models.StateShowingAnswer); err != nil {
		return nil, err
	}
	return h.FinishCurrentQuestion(hc)
}

// NextRound advances the board at the showman's request.
func (h *FlowHandlers) NextRound(hc *HandlerContext) (*HandlerResult, error) {
	if _, err := requireShowman(hc); err != nil {
		return nil, err
	}
	g := hc.Game
	if !g.Started() {
		return nil, NewClientError(CodeInvalidPhase, "game has not started")
	}
	return h.advanceRound(hc, g.State.CurrentRound+1)
}

// FinishCurrentQuestion returns play to the board, auto-advancing the round
// when its last question was just played.
func (h *FlowHandlers) FinishCurrentQuestion(hc *HandlerContext) (*HandlerResult, error) {
	g := hc.Game
	muts := h.router.FinishQuestion(g)

	round, err := hc.Questions.GetRound(hc.Ctx, g.ID.String(), g.State.CurrentRound)
	if err != nil {
		return nil, NewServerError("load round %d: %v", g.State.CurrentRound, err)
	}
	if round != nil && h.router.RoundExhausted(g, round) {
		return h.advanceRound(hc, g.State.CurrentRound+1)
	}

	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventGameUpdated),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// advanceRound enters the given round, the final round, or ends the game
// when the package is exhausted.
func (h *FlowHandlers) advanceRound(hc *HandlerContext, order int) (*HandlerResult, error) {
	g := hc.Game
	next, err := hc.Questions.GetRound(hc.Ctx, g.ID.String(), order)
	if err != nil {
		return nil, NewServerError("load round %d: %v", order, err)
	}
	if next == nil {
		return finishGame(g), nil
	}

	var muts []mutation.Mutation
	if next.IsFinal {
		muts = h.router.EnterFinalRound(g, next)
	} else {
		muts = h.router.EnterRound(g, next)
	}
	muts = append(muts,
		mutation.SaveGame{Game: g},
		snapshotBroadcast(broadcast.EventRoundChanged),
	)
	return &HandlerResult{Success: true, Mutations: muts}, nil
}

// rotateToPicker orders active players starting at the picker.
func rotateToPicker(g *models.Game, picker uuid.UUID) []uuid.UUID {
	active := g.ActivePlayers()
	var ids []uuid.UUID
	start := 0
	for i, p := range active {
		ids = append(ids, p.ID)
		if p.ID == picker {
			start = i
		}
	}
	if len(ids) == 0 {
		return ids
	}
	return append(ids[start:], ids[:start]...)
}
