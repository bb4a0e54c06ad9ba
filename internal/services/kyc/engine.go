// Package kyc implements the risk scoring engine: five weighted checks
// combined into one global score and risk level. An assessment is always
// recomputed from current state; scoring degrades on missing inputs but
// never fails outright.
package kyc

import (
	"context"
	"log"
	"strings"

	"sahel/internal/config"
	"sahel/internal/models"
	"sahel/internal/services/extract"
)

// WatchlistSource screens a declared name against the PEP/blacklist
// reference data. An error means the source is unavailable, which is
// non-fatal for scoring.
type WatchlistSource interface {
	Lookup(firstName, lastName string) (bool, error)
}

// BehaviorSource is the hook for client-side telemetry scoring. It is
// overridable per applicant; without a wired signal the check passes.
type BehaviorSource interface {
	Score(user *models.User) float64
}

type passBehavior struct{}

func (passBehavior) Score(*models.User) float64 { return 1.0 }

// Engine computes risk assessments.
type Engine struct {
	ocr       extract.TextExtractor
	faces     extract.FaceMatcher
	watchlist WatchlistSource
	behavior  BehaviorSource
	cfg       config.RiskConfig
}

// NewEngine creates a scoring engine. A nil watchlist is treated as an
// unavailable source; behavior defaults to a pass-through.
func NewEngine(ocr extract.TextExtractor, faces extract.FaceMatcher, watchlist WatchlistSource, cfg config.RiskConfig) *Engine {
	if cfg.WeightDocuments == 0 && cfg.WeightContacts == 0 {
		cfg = config.RiskConfig{
			WeightDocuments: 0.30,
			WeightContacts:  0.20,
			WeightAML:       0.20,
			WeightIncome:    0.15,
			WeightBehavior:  0.15,
			LowThreshold:    0.8,
			MediumThreshold: 0.4,
		}
	}
	return &Engine{
		ocr:       ocr,
		faces:     faces,
		watchlist: watchlist,
		behavior:  passBehavior{},
		cfg:       cfg,
	}
}

// SetBehaviorSource overrides the behavior telemetry hook.
func (e *Engine) SetBehaviorSource(src BehaviorSource) {
	if src != nil {
		e.behavior = src
	}
}

// Score runs all checks against the applicant's current state. identity
// is the identity-document image and selfie the applicant's selfie;
// either may be nil, degrading the documents sub-score to its floor.
func (e *Engine) Score(ctx context.Context, user *models.User, identity, selfie []byte) *models.RiskAssessment {
	a := &models.RiskAssessment{
		UserID: user.ID,
		Flags:  models.JSON{},
	}

	a.ScoreDocuments = e.checkDocuments(ctx, user, identity, selfie, a)
	a.ScorePersonal = checkPersonal(user)
	a.ScoreBehavior = e.behavior.Score(user)
	a.ScoreAML = e.checkAML(user, a)
	a.ScoreIncome = checkIncome(user)
	a.ScoreContacts = checkContacts(user)

	a.GlobalScore = e.aggregate(a)
	a.RiskLevel = e.Level(a.GlobalScore)
	return a
}

// aggregate applies the fixed weights. They sum to 1.0, so a global score
// stays in [0,1] whenever the sub-scores do.
func (e *Engine) aggregate(a *models.RiskAssessment) float64 {
	return e.cfg.WeightDocuments*a.ScoreDocuments +
		e.cfg.WeightContacts*a.ScoreContacts +
		e.cfg.WeightAML*a.ScoreAML +
		e.cfg.WeightIncome*a.ScoreIncome +
		e.cfg.WeightBehavior*a.ScoreBehavior
}

// Level maps a global score to a risk level. Both bounds are closed:
// exactly 0.8 is low, exactly 0.4 is medium.
func (e *Engine) Level(score float64) models.RiskLevel {
	switch {
	case score >= e.cfg.LowThreshold:
		return models.RiskLevelLow
	case score >= e.cfg.MediumThreshold:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelHigh
	}
}

// checkDocuments averages the name-match and face-match scores. Absent
// inputs score 0, so a selfie-less applicant caps at 0.5 even with a
// clean OCR match. That mirrors the product's current behavior.
func (e *Engine) checkDocuments(ctx context.Context, user *models.User, identity, selfie []byte, a *models.RiskAssessment) float64 {
	var ocrScore float64
	if identity != nil {
		text, err := e.ocr.Extract(ctx, identity, []string{"fr", "en"})
		if err != nil {
			a.Flags["ocr_failed"] = err.Error()
			ocrScore = 0.5
		} else if user.LastName != "" &&
			strings.Contains(strings.ToLower(text), strings.ToLower(user.LastName)) {
			ocrScore = 1.0
		} else {
			ocrScore = 0.5
		}
	}

	var faceScore float64
	if identity != nil && selfie != nil {
		idEmb, err1 := e.faces.Embed(ctx, identity)
		selfieEmb, err2 := e.faces.Embed(ctx, selfie)
		if err1 == nil && err2 == nil && idEmb != nil && selfieEmb != nil &&
			e.faces.Compare(idEmb, selfieEmb) {
			faceScore = 1.0
		}
	}

	return (ocrScore + faceScore) / 2
}

func checkPersonal(user *models.User) float64 {
	if age, ok := user.Age(); ok && age >= 18 {
		return 1.0
	}
	return 0.0
}

// checkAML screens the declared name against the watchlist. A hit scores
// 0 and raises a flag; an unavailable source is a pass-through so missing
// reference data never blocks an assessment.
func (e *Engine) checkAML(user *models.User, a *models.RiskAssessment) float64 {
	if e.watchlist == nil {
		log.Printf("watchlist source not configured, skipping AML screening for user %d", user.ID)
		return 1.0
	}
	match, err := e.watchlist.Lookup(user.FirstName, user.LastName)
	if err != nil {
		log.Printf("watchlist unavailable, skipping AML screening for user %d: %v", user.ID, err)
		return 1.0
	}
	if match {
		a.Flags["aml_match"] = true
		return 0.0
	}
	return 1.0
}

func checkIncome(user *models.User) float64 {
	if user.Revenue.IsPositive() {
		return 1.0
	}
	return 0.0
}

func checkContacts(user *models.User) float64 {
	if user.Email != "" && user.Phone != "" {
		return 1.0
	}
	return 0.0
}
