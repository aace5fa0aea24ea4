package spaced_repetition

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/flashstack/internal/grading"
	"github.com/example/flashstack/pkg/models"
)

const (
	// MinEaseFactor is the SM-2 floor for the easiness factor
	MinEaseFactor = 1.3
	// DefaultEaseFactor is assigned to a card on its first review
	DefaultEaseFactor = 2.5
	// MaxMasteryLevel is the highest mastery level a card can reach
	MaxMasteryLevel = 5
)

// ErrInvalidQuality is returned when a quality score is outside 0..5
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Пороговое значение "хорошего ответа"
	PassThreshold QualityResponse
	// Максимальный интервал повторения в днях, 0 - без ограничения
	MaxInterval int
}

// NewSM2 создает новый экземпляр SM2 с настройками по умолчанию
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold: QualityCorrectDifficult, // Ответы 3 и выше считаются успешными
		MaxInterval:   365,                     // Максимальный интервал - 1 год
	}
}

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// Valid reports whether q is inside the documented 0..5 range.
func (q QualityResponse) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// QualityOf translates a grading outcome into the scheduler's quality scale.
// This is the only place the numeric contract between grader and scheduler lives.
func QualityOf(outcome grading.Outcome) QualityResponse {
	switch outcome {
	case grading.Exact:
		return QualityPerfect
	case grading.SoftPass:
		return QualityCorrectHesitation
	default:
		return QualityIncorrectFamiliar
	}
}

// NewCardState returns the initial review state for a card a user has never reviewed.
func NewCardState(userID, cardID int64, now time.Time) models.CardReviewState {
	return models.CardReviewState{
		UserID:         userID,
		CardID:         cardID,
		MasteryLevel:   0,
		EaseFactor:     DefaultEaseFactor,
		IntervalDays:   1,
		NextReviewDate: now,
	}
}

// Schedule applies one review to state and returns the updated state.
// It does not touch storage; the caller persists the result.
func (sm *SM2) Schedule(state models.CardReviewState, quality QualityResponse, now time.Time) (models.CardReviewState, error) {
	if !quality.Valid() {
		return state, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	next := state
	reviewedAt := now
	next.LastReviewDate = &reviewedAt
	next.LastQuality = int(quality)

	if quality >= sm.PassThreshold {
		switch {
		case state.MasteryLevel <= 0:
			next.IntervalDays = 1
			next.MasteryLevel = 1
		case state.MasteryLevel == 1:
			next.IntervalDays = 6
			next.MasteryLevel = 2
		default:
			// Интервал считается по фактору легкости до его обновления
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * state.EaseFactor))
			next.MasteryLevel = min(MaxMasteryLevel, state.MasteryLevel+1)
		}

		if sm.MaxInterval > 0 && next.IntervalDays > sm.MaxInterval {
			next.IntervalDays = sm.MaxInterval
		}
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}

		next.EaseFactor = adjustEase(state.EaseFactor, quality)
	} else {
		// Неправильный ответ - сбрасываем интервал, фактор легкости не трогаем
		next.MasteryLevel = max(0, state.MasteryLevel-1)
		next.IntervalDays = 1
	}

	next.NextReviewDate = now.AddDate(0, 0, next.IntervalDays)
	return next, nil
}

// adjustEase applies the SM-2 easiness update, floored at MinEaseFactor.
func adjustEase(ef float64, quality QualityResponse) float64 {
	d := 5.0 - float64(quality)
	newEF := ef + (0.1 - d*(0.08+d*0.02))
	if newEF < MinEaseFactor {
		newEF = MinEaseFactor
	}
	return newEF
}

// DueCards returns up to limit states due for review at now.
//
// Priority:
//  1. cards that have never been reviewed
//  2. cards with the lowest ease factor (hardest cards)
//  3. cards that are the most overdue
func DueCards(states []models.CardReviewState, now time.Time, limit int) []models.CardReviewState {
	var due []models.CardReviewState
	for _, s := range states {
		if !s.NextReviewDate.After(now) {
			due = append(due, s)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		ri, rj := due[i].Reviewed(), due[j].Reviewed()
		if ri != rj {
			return !ri
		}
		if due[i].EaseFactor != due[j].EaseFactor {
			return due[i].EaseFactor < due[j].EaseFactor
		}
		return due[i].NextReviewDate.Before(due[j].NextReviewDate)
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}

// IsMastered determines if a card has reached the given mastery threshold
func IsMastered(state *models.CardReviewState, threshold int) bool {
	return state != nil && state.MasteryLevel >= threshold
}
