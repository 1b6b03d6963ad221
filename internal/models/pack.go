// internal/models/pack.go
package models

// QuestionType selects which sub-protocol a question runs.
type QuestionType string

const (
	QuestionSimple QuestionType = "SIMPLE"
	QuestionStake  QuestionType = "STAKE"
	QuestionSecret QuestionType = "SECRET"
)

// Transfer types for secret questions. The picker's choice of target is
// constrained by the question's annotation; TransferAny allows either.
const (
	TransferAny     = "ANY"
	TransferToOther = "TO_OTHER"
	TransferToSelf  = "TO_SELF"
)

// Question is one immutable cell of the board. Package content is written
// once at game creation and read-only during play.
type Question struct {
	ID      string       `json:"id"`
	ThemeID string       `json:"themeId"`
	Order   int          `json:"order"`
	Price   int          `json:"price"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Answer  string       `json:"answer"`
	// MaxPrice caps stake bids for this question; 0 defers to config.
	MaxPrice int `json:"maxPrice,omitempty"`
	// TransferType annotates secret questions (e.g. any player, others only).
	TransferType string `json:"transferType,omitempty"`
}

// Theme groups the questions of one board column.
type Theme struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Round is one board of themes. A final round carries exactly one question
// per theme and is played through elimination, bidding and review.
type Round struct {
	ID      string  `json:"id"`
	Order   int     `json:"order"`
	Name    string  `json:"name"`
	Themes  []Theme `json:"themes"`
	IsFinal bool    `json:"isFinal"`
}

// QuestionByID scans the round for a question.
func (r *Round) QuestionByID(id string) (*Question, *Theme) {
	for ti := range r.Themes {
		for qi := range r.Themes[ti].Questions {
			if r.Themes[ti].Questions[qi].ID == id {
				return &r.Themes[ti].Questions[qi], &r.Themes[ti]
			}
		}
	}
	return nil, nil
}
