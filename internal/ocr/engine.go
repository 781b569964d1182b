package ocr

import (
	"context"
	"sort"
	"strings"

	"github.com/codycollier/wer"
	"github.com/sirupsen/logrus"

	"go-card-scanner/internal/logger"
	"go-card-scanner/internal/preprocess"
	"go-card-scanner/pkg/models"
)

// Engine is one OCR recognizer. Lower priority wins confidence ties; the
// local Tesseract engine is priority 0 because it has no network dependency.
type Engine interface {
	Name() string
	Priority() int
	Available() bool
	// OriginalOnly limits an engine to the first (unmodified) variant.
	// Network engines set this so one request covers the whole scan.
	OriginalOnly() bool
	Recognize(ctx context.Context, variant preprocess.Variant) (models.OCRAttempt, error)
}

// Reconciler runs every available engine against its eligible variants and
// selects the best outcome. An engine failing on a single variant is a
// missing attempt, never a pipeline failure. All-empty attempts reconcile to
// {text: "", confidence: 0.0}, which is a valid "no legible text" result.
type Reconciler struct {
	engines []Engine
}

func NewReconciler(engines ...Engine) *Reconciler {
	ordered := make([]Engine, len(engines))
	copy(ordered, engines)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	return &Reconciler{engines: ordered}
}

// Run produces one OCRAttempt per (engine, eligible variant) pair and picks
// the non-empty attempt with the highest confidence. Ties go to the engine
// earlier in priority order because engines iterate in that order and a
// later attempt must be strictly better to displace the leader.
func (r *Reconciler) Run(ctx context.Context, variants []preprocess.Variant) models.OCRResult {
	var attempts []models.OCRAttempt

	for _, engine := range r.engines {
		if !engine.Available() {
			logger.WithField("engine", engine.Name()).Debug("OCR engine unavailable, skipping")
			continue
		}

		eligible := variants
		if engine.OriginalOnly() && len(variants) > 1 {
			eligible = variants[:1]
		}

		for _, variant := range eligible {
			if ctx.Err() != nil {
				break
			}

			attempt, err := engine.Recognize(ctx, variant)
			if err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"engine":  engine.Name(),
					"variant": variant.Label,
				}).Debug("OCR attempt failed")
				continue
			}
			if strings.TrimSpace(attempt.Text) == "" {
				continue
			}
			attempts = append(attempts, attempt)
		}
	}

	return reconcile(attempts)
}

func reconcile(attempts []models.OCRAttempt) models.OCRResult {
	if len(attempts) == 0 {
		return models.OCRResult{Text: "", Confidence: 0.0}
	}

	best, runnerUp := 0, -1
	for i := 1; i < len(attempts); i++ {
		if attempts[i].Confidence > attempts[best].Confidence {
			runnerUp = best
			best = i
		} else if runnerUp < 0 || attempts[i].Confidence > attempts[runnerUp].Confidence {
			runnerUp = i
		}
	}

	result := models.OCRResult{
		Text:        attempts[best].Text,
		Confidence:  attempts[best].Confidence,
		EngineLabel: attempts[best].EngineLabel,
	}
	if runnerUp >= 0 {
		if agreement, ok := wordAgreement(attempts[best].Text, attempts[runnerUp].Text); ok {
			result.Agreement = &agreement
		}
	}
	return result
}

// wordAgreement reports how closely two attempts agree, as 1 minus the word
// error rate of the runner-up against the winner. Diagnostic only; it never
// influences selection.
func wordAgreement(winner, runnerUp string) (float64, bool) {
	ref := strings.Fields(winner)
	hyp := strings.Fields(runnerUp)
	if len(ref) == 0 || len(hyp) == 0 {
		return 0, false
	}

	rate, err := wer.WER(ref, hyp)
	if err != nil {
		return 0, false
	}

	agreement := 1.0 - rate
	if agreement < 0 {
		agreement = 0
	} else if agreement > 1 {
		agreement = 1
	}
	return agreement, true
}
