// internal/engine/transitions.go
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/sigmahub/trivia-engine/internal/broadcast"
	"github.com/sigmahub/trivia-engine/internal/config"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/mutation"
)

// Router advances the question/round state machine and hosts the
// cross-cutting transition rules that several handlers share: answerer
// exhaustion, question completion, final-round entry and departure cleanup.
type Router struct {
	cfg *config.Config
}

// NewRouter builds the phase transition router.
func NewRouter(cfg *config.Config) *Router {
	return &Router{cfg: cfg}
}

// EligibleAnswerers returns the players still allowed to buzz in on the
// current question: present when it started, still connected, no verdict
// recorded, not skipped.
func (r *Router) EligibleAnswerers(g *models.Game) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range g.State.EligiblePlayers {
		p := g.PlayerByID(id)
		if p == nil || !p.IsActivePlayer() {
			continue
		}
		if g.State.HasAnswered(id) || g.State.HasSkipped(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// StartQuestion moves the board into SHOWING for an ordinary question and
// freezes the eligible-answerer set. Late joiners are excluded by
// construction.
func (r *Router) StartQuestion(g *models.Game, q *models.Question) []mutation.Mutation {
	g.State.QuestionState = models.StateShowing
	g.State.CurrentQuestionID = q.ID
	g.State.PlayedQuestions = append(g.State.PlayedQuestions, q.ID)
	g.State.AnsweredPlayers = nil
	g.State.SkippedPlayers = nil
	g.State.EligiblePlayers = nil
	for _, p := range g.ActivePlayers() {
		g.State.EligiblePlayers = append(g.State.EligiblePlayers, p.ID)
	}
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerQuestion, r.cfg.QuestionTimer)},
	}
}

// BeginAnswering hands the floor to one player and starts the answering
// countdown.
func (r *Router) BeginAnswering(g *models.Game, playerID uuid.UUID) []mutation.Mutation {
	g.State.QuestionState = models.StateAnswering
	g.State.AnsweringPlayerID = playerID
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerAnswering, r.cfg.AnsweringTimer)},
	}
}

// ToShowingAnswer reveals the answer and schedules the return to the board.
func (r *Router) ToShowingAnswer(g *models.Game) []mutation.Mutation {
	g.State.QuestionState = models.StateShowingAnswer
	g.State.AnsweringPlayerID = uuid.Nil
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerShowAnswer, r.cfg.ShowAnswerTimer)},
	}
}

// ApplyVerdict resolves one answer attempt. A correct answer (or exhaustion
// of all eligible answerers after a wrong one) forces SHOWING_ANSWER; a wrong
// answer with answerers left returns to SHOWING — unless everyone remaining
// already skipped, in which case the countdown would run with no one able to
// answer, so it advances straight to SHOWING_ANSWER.
func (r *Router) ApplyVerdict(g *models.Game, playerID uuid.UUID, verdict models.AnswerVerdict, price int) []mutation.Mutation {
	delta := 0
	switch verdict {
	case models.VerdictCorrect:
		delta = price
	case models.VerdictWrong:
		delta = -price
	}

	if p := g.PlayerByID(playerID); p != nil && delta != 0 {
		p.Score = clampScore(p.Score+delta, r.cfg.ScoreCap)
	}
	g.State.AnsweredPlayers = append(g.State.AnsweredPlayers, models.AnsweredEntry{
		PlayerID:   playerID,
		Verdict:    verdict,
		ScoreDelta: delta,
	})
	g.State.AnsweringPlayerID = uuid.Nil

	if verdict == models.VerdictCorrect {
		// Winner picks next.
		g.State.CurrentTurnPlayerID = playerID
		return r.ToShowingAnswer(g)
	}

	if len(r.EligibleAnswerers(g)) == 0 {
		return r.ToShowingAnswer(g)
	}
	g.State.QuestionState = models.StateShowing
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerQuestion, r.cfg.QuestionTimer)},
	}
}

// FinishQuestion returns play to the board, clearing every per-question and
// sub-phase field.
func (r *Router) FinishQuestion(g *models.Game) []mutation.Mutation {
	g.State.ClearQuestion()
	g.State.QuestionState = models.StateChoosing
	return []mutation.Mutation{mutation.TimerDelete{}}
}

// RoundExhausted reports whether every question of the round is played.
func (r *Router) RoundExhausted(g *models.Game, round *models.Round) bool {
	for _, th := range round.Themes {
		for _, q := range th.Questions {
			if !g.State.QuestionPlayed(q.ID) {
				return false
			}
		}
	}
	return true
}

// EnterRound resets per-round state for an ordinary round.
func (r *Router) EnterRound(g *models.Game, round *models.Round) []mutation.Mutation {
	g.State.ClearQuestion()
	g.State.Final = nil
	g.State.CurrentRound = round.Order
	g.State.PlayedQuestions = nil
	g.State.QuestionState = models.StateChoosing
	return []mutation.Mutation{mutation.TimerDelete{}}
}

// EnterFinalRound seeds the final round. Eligible players are connected
// scorers with a positive score; when none exist the showman is substituted
// into the turn order so the round still has a driver.
func (r *Router) EnterFinalRound(g *models.Game, round *models.Round) []mutation.Mutation {
	g.State.ClearQuestion()
	g.State.CurrentRound = round.Order
	g.State.PlayedQuestions = nil

	var order []uuid.UUID
	for _, p := range g.ActivePlayers() {
		if p.Score > 0 {
			order = append(order, p.ID)
		}
	}
	if len(order) == 0 {
		if sm := g.Showman(); sm != nil {
			order = append(order, sm.ID)
		}
	}

	g.State.Final = &models.FinalRoundData{
		Phase:     models.FinalThemeElimination,
		TurnOrder: order,
		Bids:      make(map[uuid.UUID]int),
	}
	g.State.QuestionState = models.StateThemeElimination
	if len(order) > 0 {
		g.State.CurrentTurnPlayerID = order[0]
	}

	// A single-theme final has nothing to eliminate.
	if len(round.Themes) <= 1 {
		return r.enterFinalBidding(g, round)
	}
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerFinalPhase, r.cfg.FinalPhaseTimer)},
	}
}

// EliminateTheme records one elimination and advances the turn; when a single
// theme remains it opens blind bidding on it.
func (r *Router) EliminateTheme(g *models.Game, round *models.Round, themeID string) []mutation.Mutation {
	f := g.State.Final
	f.EliminatedThemes = append(f.EliminatedThemes, themeID)
	f.CurrentTurnIndex++
	if len(f.TurnOrder) > 0 {
		g.State.CurrentTurnPlayerID = f.CurrentTurnPlayer()
	}

	if len(r.RemainingThemes(round, f)) == 1 {
		return r.enterFinalBidding(g, round)
	}
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerFinalPhase, r.cfg.FinalPhaseTimer)},
	}
}

// RemainingThemes lists the final-round themes not yet eliminated.
func (r *Router) RemainingThemes(round *models.Round, f *models.FinalRoundData) []models.Theme {
	var out []models.Theme
	for _, th := range round.Themes {
		eliminated := false
		for _, id := range f.EliminatedThemes {
			if id == th.ID {
				eliminated = true
				break
			}
		}
		if !eliminated {
			out = append(out, th)
		}
	}
	return out
}

func (r *Router) enterFinalBidding(g *models.Game, round *models.Round) []mutation.Mutation {
	f := g.State.Final
	remaining := r.RemainingThemes(round, f)
	if len(remaining) > 0 {
		f.ThemeID = remaining[0].ID
		if len(remaining[0].Questions) > 0 {
			f.QuestionID = remaining[0].Questions[0].ID
		}
	}
	f.Phase = models.FinalBidding
	g.State.QuestionState = models.StateBidding
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerFinalPhase, r.cfg.FinalPhaseTimer)},
	}
}

// ClampFinalBid forces a bid into [minimum, max(score, minimum)]. A
// non-positive score forces the minimum bid.
func (r *Router) ClampFinalBid(score, bid int) int {
	min := r.cfg.MinFinalBid
	if score <= 0 {
		return min
	}
	upper := score
	if upper < min {
		upper = min
	}
	if bid < min {
		return min
	}
	if bid > upper {
		return upper
	}
	return bid
}

// FinalBiddersComplete reports whether every connected scoring player in the
// turn order has a recorded bid. Departed players cannot bid any more, so
// they stop counting.
func (r *Router) FinalBiddersComplete(g *models.Game) bool {
	f := g.State.Final
	for _, id := range f.TurnOrder {
		p := g.PlayerByID(id)
		if p == nil || !p.IsActivePlayer() {
			continue // substituted showman and departed players never bid
		}
		if _, ok := f.Bids[id]; !ok {
			return false
		}
	}
	return true
}

// FinalAnswersComplete reports whether every connected player obligated to
// answer has. Players whose bid is zero or less are exempt; departed bidders
// already had their auto-loss recorded on departure.
func (r *Router) FinalAnswersComplete(g *models.Game) bool {
	f := g.State.Final
	for _, id := range f.TurnOrder {
		p := g.PlayerByID(id)
		if p == nil || !p.IsActivePlayer() {
			continue
		}
		if f.Bids[id] <= 0 {
			continue
		}
		if f.AnswerFor(id) == nil {
			return false
		}
	}
	return true
}

// BeginFinalAnswering opens the simultaneous answering window.
func (r *Router) BeginFinalAnswering(g *models.Game) []mutation.Mutation {
	g.State.Final.Phase = models.FinalAnswering
	g.State.QuestionState = models.StateAnswering
	g.State.AnsweringPlayerID = uuid.Nil
	return []mutation.Mutation{
		mutation.TimerSet{Timer: models.NewTimer(models.TimerFinalPhase, r.cfg.FinalPhaseTimer)},
	}
}

// BeginFinalReview closes answering, fabricating auto-loss answers for
// obligated players who never submitted, and applies those losses.
func (r *Router) BeginFinalReview(g *models.Game, now time.Time) []mutation.Mutation {
	f := g.State.Final
	for _, id := range f.TurnOrder {
		p := g.PlayerByID(id)
		if p == nil || p.Role != models.RolePlayer || f.Bids[id] <= 0 {
			continue
		}
		if f.AnswerFor(id) != nil {
			continue
		}
		wrong := false
		f.Answers = append(f.Answers, models.FinalAnswer{
			ID:          uuid.New(),
			PlayerID:    id,
			SubmittedAt: now,
			IsCorrect:   &wrong,
			AutoLoss:    true,
		})
		r.ApplyReviewDelta(g, p, -f.Bids[id])
	}
	f.Phase = models.FinalReviewing
	g.State.QuestionState = models.StateReviewing
	return []mutation.Mutation{mutation.TimerDelete{}}
}

// ApplyReviewDelta moves a score by a review outcome, saturating at the
// per-review delta cap and the absolute score ceiling.
func (r *Router) ApplyReviewDelta(g *models.Game, p *models.Player, delta int) {
	if delta > r.cfg.MaxReviewDelta {
		delta = r.cfg.MaxReviewDelta
	}
	if delta < -r.cfg.MaxReviewDelta {
		delta = -r.cfg.MaxReviewDelta
	}
	p.Score = clampScore(p.Score+delta, r.cfg.ScoreCap)
}

// FinalReviewComplete reports whether every submitted answer has a verdict.
func (r *Router) FinalReviewComplete(g *models.Game) bool {
	for i := range g.State.Final.Answers {
		if g.State.Final.Answers[i].IsCorrect == nil {
			return false
		}
	}
	return true
}

// ResolveDeparture applies the cross-cutting consequences of a player
// leaving, disconnecting or being kicked mid-question. The sole remaining
// answerer or bidder force-resolves with a zero-point outcome instead of
// leaving the sub-phase stuck.
func (r *Router) ResolveDeparture(g *models.Game, playerID uuid.UUID) []mutation.Mutation {
	var muts []mutation.Mutation
	st := &g.State

	switch {
	case st.Stake != nil && st.Stake.BiddingPhase:
		muts = append(muts, r.departStakeBidder(g, playerID)...)

	case st.Secret != nil && st.Secret.TransferPhase && st.Secret.PickerID == playerID:
		// Picker left before transferring: nobody can nominate, resolve for
		// zero points.
		muts = append(muts, r.ToShowingAnswer(g)...)
		st.Secret = nil

	case st.AnsweringPlayerID == playerID && st.Final == nil:
		// Automatic zero-score skip so the question does not stall.
		muts = append(muts, r.ApplyVerdict(g, playerID, models.VerdictSkip, 0)...)
		if st.Secret != nil {
			st.Secret = nil
		}

	case st.Final != nil:
		muts = append(muts, r.departFinal(g, playerID)...)
	}

	// Departed players also stop blocking the all-skipped check.
	if st.QuestionState == models.StateShowing && len(r.EligibleAnswerers(g)) == 0 {
		muts = append(muts, r.ToShowingAnswer(g)...)
	}

	if g.State.CurrentTurnPlayerID == playerID {
		if active := g.ActivePlayers(); len(active) > 0 {
			g.State.CurrentTurnPlayerID = active[0].ID
		}
	}
	return muts
}

func (r *Router) departStakeBidder(g *models.Game, playerID uuid.UUID) []mutation.Mutation {
	s := g.State.Stake
	if s.HasPassed(playerID) {
		return nil
	}
	s.PassedPlayers = append(s.PassedPlayers, playerID)

	if s.CurrentBidder() == playerID {
		return r.AdvanceStake(g)
	}
	// Not their turn, but their pass may leave a single live bidder.
	return r.checkStakeCompletion(g)
}

func (r *Router) departFinal(g *models.Game, playerID uuid.UUID) []mutation.Mutation {
	f := g.State.Final
	switch f.Phase {
	case models.FinalThemeElimination:
		if f.CurrentTurnPlayer() == playerID {
			f.CurrentTurnIndex++
			g.State.CurrentTurnPlayerID = f.CurrentTurnPlayer()
		}
	case models.FinalBidding:
		// The departed player places no bid and owes nothing; if everyone
		// else already bid, bidding must not wait for the deadline.
		if r.FinalBiddersComplete(g) {
			return r.BeginFinalAnswering(g)
		}
	case models.FinalAnswering:
		if f.Bids[playerID] > 0 && f.AnswerFor(playerID) == nil {
			wrong := false
			f.Answers = append(f.Answers, models.FinalAnswer{
				ID:        uuid.New(),
				PlayerID:  playerID,
				IsCorrect: &wrong,
				AutoLoss:  true,
			})
			if p := g.PlayerByID(playerID); p != nil {
				r.ApplyReviewDelta(g, p, -f.Bids[playerID])
			}
		}
		if r.FinalAnswersComplete(g) {
			f.Phase = models.FinalReviewing
			g.State.QuestionState = models.StateReviewing
			return []mutation.Mutation{mutation.TimerDelete{}}
		}
	}
	return nil
}

// AdvanceStake moves the auction to the next live bidder, or resolves it
// when at most one remains.
func (r *Router) AdvanceStake(g *models.Game) []mutation.Mutation {
	s := g.State.Stake
	if muts := r.checkStakeCompletion(g); muts != nil {
		return muts
	}
	for i := 1; i <= len(s.BiddingOrder); i++ {
		idx := (s.CurrentBidderIndex + i) % len(s.BiddingOrder)
		candidate := s.BiddingOrder[idx]
		if s.HasPassed(candidate) {
			continue
		}
		p := g.PlayerByID(candidate)
		if p == nil || !p.IsActivePlayer() {
			continue
		}
		s.CurrentBidderIndex = idx
		return []mutation.Mutation{
			mutation.TimerSet{Timer: models.NewTimer(models.TimerBidding, r.cfg.BiddingTimer)},
		}
	}
	// Nobody left to bid at all.
	return r.resolveStake(g)
}

// checkStakeCompletion resolves the auction once a single live bidder holds
// the floor, or cancels the question when nobody does. Returns nil while the
// auction continues.
func (r *Router) checkStakeCompletion(g *models.Game) []mutation.Mutation {
	s := g.State.Stake
	live := 0
	for _, id := range s.BiddingOrder {
		p := g.PlayerByID(id)
		if p == nil || !p.IsActivePlayer() || s.HasPassed(id) {
			continue
		}
		live++
	}
	if live > 1 {
		return nil
	}
	return r.resolveStake(g)
}

// resolveStake ends the bidding phase: the highest bidder wins the right to
// answer, or the question resolves for zero points when no bid stands.
func (r *Router) resolveStake(g *models.Game) []mutation.Mutation {
	s := g.State.Stake
	s.BiddingPhase = false

	var winner uuid.UUID
	best := -1
	for _, id := range s.BiddingOrder {
		bid, ok := s.Bids[id]
		if !ok {
			continue
		}
		p := g.PlayerByID(id)
		if p == nil || !p.IsActivePlayer() {
			continue
		}
		if bid > best {
			best = bid
			winner = id
		}
	}

	if winner == uuid.Nil {
		// Everyone left or passed without a standing bid.
		return r.ToShowingAnswer(g)
	}
	s.WinnerPlayerID = &winner
	g.State.EligiblePlayers = []uuid.UUID{winner}
	return r.BeginAnswering(g, winner)
}

// clampScore saturates a score at the absolute ceiling in either direction.
func clampScore(score, limit int) int {
	if score > limit {
		return limit
	}
	if score < -limit {
		return -limit
	}
	return score
}

// snapshotBroadcast is the standard post-save broadcast: a role-filtered
// game snapshot pushed to every socket.
func snapshotBroadcast(t broadcast.EventType) mutation.Mutation {
	return mutation.Broadcast{
		Event:        broadcast.Event{Type: t, Target: broadcast.TargetGame},
		WithSnapshot: true,
	}
}
