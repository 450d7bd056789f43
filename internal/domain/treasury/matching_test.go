package treasury

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func testBankMovement(t *testing.T, tenantID uuid.UUID, description string, amount int64, date time.Time) *BankMovement {
	t.Helper()
	m, err := NewBankMovement(tenantID, NewBankMovementInput{
		BankAccountID: uuid.New(),
		Date:          date,
		Description:   description,
		Amount:        decimal.NewFromInt(amount),
		Direction:     BankMovementCredit,
	})
	require.NoError(t, err)
	return m
}

func testPayment(t *testing.T, tenantID uuid.UUID, counterparty string, amount int64, date time.Time) *Payment {
	t.Helper()
	p, err := NewPayment(tenantID, NewPaymentInput{
		BankAccountID:    uuid.New(),
		CounterpartyID:   uuid.New(),
		CounterpartyName: counterparty,
		Direction:        PaymentIncoming,
		Amount:           decimal.NewFromInt(amount),
		Date:             date,
	})
	require.NoError(t, err)
	return p
}

// ============================================
// NormalizeDescription Tests
// ============================================

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PAGO  JUAN   PEREZ", "pago juan perez"},
		{"  Transferencia CBU 2850590940090418135201  ", "transferencia cbu 2850590940090418135201"},
		{"", ""},
		{"\tDEP \n EFECTIVO ", "dep efectivo"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDescription(tt.in))
		})
	}
}

// ============================================
// ScoreCandidate Tests
// ============================================

func TestScoreCandidate_ExactMatchSameDay(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ CBU 285059094", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day)

	score, patternHit := ScoreCandidate(cfg, movement, payment, nil)

	assert.False(t, patternHit)
	// Amount exact (0.45) + date exact (0.20) + name contained in text (0.35)
	assert.True(t, score.GreaterThanOrEqual(cfg.HighThreshold), "score %s", score)
	assert.Equal(t, ConfidenceHigh, cfg.ConfidenceFor(score))
}

func TestScoreCandidate_DayBeforeStillHigh(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ CBU 285059094", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day.AddDate(0, 0, -1))

	score, _ := ScoreCandidate(cfg, movement, payment, nil)
	assert.Equal(t, ConfidenceHigh, cfg.ConfidenceFor(score))
}

func TestScoreCandidate_AmountOutsideToleranceDiscarded(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5100, day)

	score, _ := ScoreCandidate(cfg, movement, payment, nil)
	assert.True(t, score.IsZero())
}

func TestScoreCandidate_DateOutsideWindowDiscarded(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day.AddDate(0, 0, -(cfg.DateWindowDays+5)))

	score, _ := ScoreCandidate(cfg, movement, payment, nil)
	assert.True(t, score.IsZero())
}

func TestScoreCandidate_DirectionMismatchDiscarded(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day)
	payment.Direction = PaymentOutgoing

	score, _ := ScoreCandidate(cfg, movement, payment, nil)
	assert.True(t, score.IsZero())
}

func TestScoreCandidate_PatternBoost(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	// Garbled description that barely resembles the counterparty name
	movement := testBankMovement(t, tenantID, "TRF 0002998 REF 918277", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day)

	without, _ := ScoreCandidate(cfg, movement, payment, nil)

	patterns := PatternMap{
		NormalizeDescription(movement.Description): payment.CounterpartyID,
	}
	with, patternHit := ScoreCandidate(cfg, movement, payment, patterns)

	assert.True(t, patternHit)
	assert.True(t, with.GreaterThan(without))
	assert.True(t, with.Sub(without).Equal(cfg.PatternBoost))
}

func TestScoreCandidate_PatternForOtherCounterpartyNoBoost(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day)

	patterns := PatternMap{
		NormalizeDescription(movement.Description): uuid.New(),
	}
	_, patternHit := ScoreCandidate(cfg, movement, payment, patterns)
	assert.False(t, patternHit)
}

func TestScoreCandidate_ScoreCappedAtOne(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	movement := testBankMovement(t, tenantID, "JUAN PEREZ", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day)

	patterns := PatternMap{
		NormalizeDescription(movement.Description): payment.CounterpartyID,
	}
	score, _ := ScoreCandidate(cfg, movement, payment, patterns)
	assert.True(t, score.LessThanOrEqual(decimal.NewFromInt(1)))
}

// ============================================
// BuildSuggestions Tests
// ============================================

func TestBuildSuggestions_OmitsMovementsWithoutCandidates(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	matchable := testBankMovement(t, tenantID, "PAGO JUAN PEREZ", 5000, day)
	orphan := testBankMovement(t, tenantID, "COMISION MANTENIMIENTO", 137, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day)

	suggestions := BuildSuggestions(cfg, []*BankMovement{matchable, orphan}, []*Payment{payment}, nil)

	require.Len(t, suggestions, 1)
	assert.Equal(t, matchable.ID, suggestions[0].BankMovement.ID)
	require.Len(t, suggestions[0].Candidates, 1)
	assert.Equal(t, payment.ID, suggestions[0].Candidates[0].PaymentID)
}

func TestBuildSuggestions_SkipsReconciledPayments(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ", 5000, day)
	payment := testPayment(t, tenantID, "Juan Perez", 5000, day)
	require.NoError(t, payment.MarkReconciled())

	suggestions := BuildSuggestions(cfg, []*BankMovement{movement}, []*Payment{payment}, nil)
	assert.Empty(t, suggestions)
}

func TestBuildSuggestions_RanksBestFirst(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	movement := testBankMovement(t, tenantID, "PAGO JUAN PEREZ", 5000, day)
	near := testPayment(t, tenantID, "Juan Perez", 5000, day)
	far := testPayment(t, tenantID, "Juan Perez", 5000, day.AddDate(0, 0, -30))

	suggestions := BuildSuggestions(cfg, []*BankMovement{movement}, []*Payment{far, near}, nil)

	require.Len(t, suggestions, 1)
	require.Len(t, suggestions[0].Candidates, 2)
	assert.Equal(t, near.ID, suggestions[0].Candidates[0].PaymentID)
	assert.True(t, suggestions[0].Candidates[0].Score.GreaterThanOrEqual(suggestions[0].Candidates[1].Score))
}

// Learned patterns raise the score of a repeat description from the same
// counterparty above its unlearned baseline.
func TestLearningRaisesFutureScores(t *testing.T) {
	cfg := DefaultMatcherConfig()
	tenantID := uuid.New()
	day := time.Now()

	first := testBankMovement(t, tenantID, "TRF INTERBANKING 99-X", 5000, day)
	payment := testPayment(t, tenantID, "Transportes del Sur SRL", 5000, day)

	baseline, _ := ScoreCandidate(cfg, first, payment, nil)

	// Simulates the pattern write performed by a confirmed match
	learned := PatternMap{
		NormalizeDescription(first.Description): payment.CounterpartyID,
	}

	second := testBankMovement(t, tenantID, "TRF INTERBANKING 99-X", 5000, day.AddDate(0, 0, 7))
	boosted, _ := ScoreCandidate(cfg, second, payment, learned)

	assert.True(t, boosted.GreaterThan(baseline))
}
