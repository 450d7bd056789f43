package treasury

import (
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchConfidence is the discrete tier assigned to a scored match
type MatchConfidence string

const (
	ConfidenceHigh   MatchConfidence = "HIGH"
	ConfidenceMedium MatchConfidence = "MEDIUM"
	ConfidenceLow    MatchConfidence = "LOW"
)

// MatcherConfig holds the tuning constants of the reconciliation scorer.
// The defaults were validated against recorded historical matches; they are
// exposed through configuration rather than hard-coded so operators can
// re-tune per deployment.
type MatcherConfig struct {
	// AmountTolerance is the maximum relative amount difference still
	// considered a match, e.g. 0.005 for 0.5%.
	AmountTolerance decimal.Decimal
	// DateWindowDays is the cutoff beyond which the date score is zero
	// and the candidate is discarded.
	DateWindowDays int
	AmountWeight   decimal.Decimal
	DateWeight     decimal.Decimal
	TextWeight     decimal.Decimal
	// PatternBoost is added when the learned pattern map already maps the
	// normalized description to the candidate's counterparty.
	PatternBoost    decimal.Decimal
	HighThreshold   decimal.Decimal
	MediumThreshold decimal.Decimal
	// MinScore filters out implausible candidates entirely.
	MinScore decimal.Decimal
}

// DefaultMatcherConfig returns the production-validated scoring constants
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		AmountTolerance: decimal.NewFromFloat(0.005),
		DateWindowDays:  60,
		AmountWeight:    decimal.NewFromFloat(0.45),
		DateWeight:      decimal.NewFromFloat(0.20),
		TextWeight:      decimal.NewFromFloat(0.35),
		PatternBoost:    decimal.NewFromFloat(0.25),
		HighThreshold:   decimal.NewFromFloat(0.80),
		MediumThreshold: decimal.NewFromFloat(0.55),
		MinScore:        decimal.NewFromFloat(0.30),
	}
}

// PatternMap is the learned normalized-description -> counterparty mapping
// for one tenant, loaded once per matching run.
type PatternMap map[string]uuid.UUID

// MatchCandidate is one scored payment for a bank movement
type MatchCandidate struct {
	PaymentID        uuid.UUID       `json:"payment_id"`
	CounterpartyID   uuid.UUID       `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Amount           decimal.Decimal `json:"amount"`
	Date             time.Time       `json:"date"`
	Score            decimal.Decimal `json:"score"`
	Confidence       MatchConfidence `json:"confidence"`
	PatternHit       bool            `json:"pattern_hit"`
}

// MatchSuggestion pairs a bank movement with its ranked candidates.
// Movements with no plausible candidate are never surfaced.
type MatchSuggestion struct {
	BankMovement *BankMovement    `json:"bank_movement"`
	Candidates   []MatchCandidate `json:"candidates"`
}

// NormalizeDescription lower-cases and whitespace-collapses free text so
// pattern-map keys compare equal regardless of bank formatting quirks.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ScoreCandidate computes the weighted match score of one payment against
// one bank movement. Pure: the same inputs always yield the same score.
// Returns a zero score when the candidate is implausible (wrong direction
// sign, amount outside tolerance, date outside the window).
func ScoreCandidate(cfg MatcherConfig, movement *BankMovement, payment *Payment, patterns PatternMap) (decimal.Decimal, bool) {
	if !directionCompatible(movement, payment) {
		return decimal.Zero, false
	}

	amountScore := scoreAmount(cfg, movement.Amount, payment.Amount)
	if amountScore.IsZero() {
		return decimal.Zero, false
	}

	dateScore := scoreDate(cfg, movement.Date, payment.Date)
	if dateScore.IsZero() {
		return decimal.Zero, false
	}

	textScore := scoreText(movement.Description, payment.CounterpartyName, payment.Reference)

	score := cfg.AmountWeight.Mul(amountScore).
		Add(cfg.DateWeight.Mul(dateScore)).
		Add(cfg.TextWeight.Mul(textScore))

	patternHit := false
	if cp, ok := patterns[NormalizeDescription(movement.Description)]; ok && cp == payment.CounterpartyID {
		patternHit = true
		score = score.Add(cfg.PatternBoost)
	}

	one := decimal.NewFromInt(1)
	if score.GreaterThan(one) {
		score = one
	}

	return score, patternHit
}

// ConfidenceFor maps a score to its discrete tier
func (cfg MatcherConfig) ConfidenceFor(score decimal.Decimal) MatchConfidence {
	switch {
	case score.GreaterThanOrEqual(cfg.HighThreshold):
		return ConfidenceHigh
	case score.GreaterThanOrEqual(cfg.MediumThreshold):
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// BuildSuggestions scores every unreconciled candidate payment against
// every pending bank movement and returns the movements that have at least
// one plausible match, candidates sorted best-first.
func BuildSuggestions(cfg MatcherConfig, movements []*BankMovement, payments []*Payment, patterns PatternMap) []MatchSuggestion {
	suggestions := make([]MatchSuggestion, 0, len(movements))

	for _, movement := range movements {
		var candidates []MatchCandidate
		for _, payment := range payments {
			if payment.Reconciled {
				continue
			}
			score, patternHit := ScoreCandidate(cfg, movement, payment, patterns)
			if score.LessThan(cfg.MinScore) {
				continue
			}
			candidates = append(candidates, MatchCandidate{
				PaymentID:        payment.ID,
				CounterpartyID:   payment.CounterpartyID,
				CounterpartyName: payment.CounterpartyName,
				Amount:           payment.Amount,
				Date:             payment.Date,
				Score:            score,
				Confidence:       cfg.ConfidenceFor(score),
				PatternHit:       patternHit,
			})
		}
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			if !candidates[i].Score.Equal(candidates[j].Score) {
				return candidates[i].Score.GreaterThan(candidates[j].Score)
			}
			// Tie-break on date proximity to the statement line
			di := absDays(movement.Date, candidates[i].Date)
			dj := absDays(movement.Date, candidates[j].Date)
			return di < dj
		})

		suggestions = append(suggestions, MatchSuggestion{
			BankMovement: movement,
			Candidates:   candidates,
		})
	}

	return suggestions
}

// directionCompatible requires a bank credit to match an incoming payment
// and a bank debit an outgoing one.
func directionCompatible(m *BankMovement, p *Payment) bool {
	if m.Direction == BankMovementCredit {
		return p.Direction == PaymentIncoming
	}
	return p.Direction == PaymentOutgoing
}

// scoreAmount returns 1 for an exact match, decaying linearly to 0 at the
// tolerance boundary.
func scoreAmount(cfg MatcherConfig, movementAmount, paymentAmount decimal.Decimal) decimal.Decimal {
	if paymentAmount.IsZero() {
		return decimal.Zero
	}
	diff := movementAmount.Sub(paymentAmount).Abs()
	if diff.IsZero() {
		return decimal.NewFromInt(1)
	}
	relative := diff.Div(paymentAmount.Abs())
	if relative.GreaterThan(cfg.AmountTolerance) {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(relative.Div(cfg.AmountTolerance))
}

// scoreDate decays linearly from 1 at zero gap to 0 at the window cutoff
func scoreDate(cfg MatcherConfig, movementDate, paymentDate time.Time) decimal.Decimal {
	gap := absDays(movementDate, paymentDate)
	if gap > cfg.DateWindowDays {
		return decimal.Zero
	}
	if gap == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(1).Sub(
		decimal.NewFromInt(int64(gap)).Div(decimal.NewFromInt(int64(cfg.DateWindowDays))))
}

// scoreText measures similarity between the statement description and the
// counterparty's name or reference. Token containment scores highest since
// bank text usually embeds the name verbatim among noise; edit distance
// covers abbreviations and typos.
func scoreText(description, counterpartyName, reference string) decimal.Decimal {
	desc := NormalizeDescription(description)
	name := NormalizeDescription(counterpartyName)
	if desc == "" || name == "" {
		return decimal.Zero
	}

	if strings.Contains(desc, name) {
		return decimal.NewFromInt(1)
	}
	if reference != "" && strings.Contains(desc, NormalizeDescription(reference)) {
		return decimal.NewFromFloat(0.9)
	}

	best := tokenCoverage(desc, name)

	dist := levenshtein.ComputeDistance(desc, name)
	maxLen := len(desc)
	if len(name) > maxLen {
		maxLen = len(name)
	}
	similarity := decimal.NewFromInt(1).Sub(
		decimal.NewFromInt(int64(dist)).Div(decimal.NewFromInt(int64(maxLen))))
	if similarity.GreaterThan(best) {
		best = similarity
	}
	if best.IsNegative() {
		return decimal.Zero
	}
	return best
}

// tokenCoverage returns the fraction of name tokens present in the
// description, weighted by token count.
func tokenCoverage(desc, name string) decimal.Decimal {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return decimal.Zero
	}
	matched := 0
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		if strings.Contains(desc, tok) {
			matched++
		}
	}
	return decimal.NewFromInt(int64(matched)).Div(decimal.NewFromInt(int64(len(tokens))))
}

func absDays(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
