package badges

import (
	"sort"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
)

// Ladder is an ordered badge threshold table, lowest tier first. It is built
// from badge_configs rows and drives both evaluation and progress display.
type Ladder struct {
	rungs []models.BadgeConfig
}

// NewLadder validates and orders a threshold table. The table must cover
// every tier exactly once and thresholds must be strictly increasing, with
// the lowest tier at zero sales.
func NewLadder(configs []models.BadgeConfig) (*Ladder, error) {
	if len(configs) != len(enums.VendorBadges()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge ladder must cover every tier")
	}

	rungs := append([]models.BadgeConfig(nil), configs...)
	sort.Slice(rungs, func(i, j int) bool {
		return rungs[i].Badge.Rank() < rungs[j].Badge.Rank()
	})

	for i, rung := range rungs {
		if !rung.Badge.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown badge tier in ladder")
		}
		if rung.Badge.Rank() != i {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge ladder has duplicate tiers")
		}
		if i == 0 {
			if rung.MinSales != 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "lowest tier must start at zero sales")
			}
			continue
		}
		if rung.MinSales <= rungs[i-1].MinSales {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge thresholds must be strictly increasing")
		}
	}
	return &Ladder{rungs: rungs}, nil
}

// Evaluate returns the badge a vendor's cumulative sale count earns.
func (l *Ladder) Evaluate(totalSales int) enums.VendorBadge {
	earned := l.rungs[0].Badge
	for _, rung := range l.rungs {
		if totalSales >= rung.MinSales {
			earned = rung.Badge
		}
	}
	return earned
}

// Next returns the first tier above the given badge, or false at the top.
func (l *Ladder) Next(badge enums.VendorBadge) (models.BadgeConfig, bool) {
	rank := badge.Rank()
	if rank+1 >= len(l.rungs) {
		return models.BadgeConfig{}, false
	}
	return l.rungs[rank+1], true
}

// Progress reports how far a vendor is toward the next tier as a percentage
// clamped to [0, 100]. A vendor at the top tier is always at 100.
func (l *Ladder) Progress(totalSales int) float64 {
	current := l.Evaluate(totalSales)
	next, ok := l.Next(current)
	if !ok {
		return 100
	}

	floor := l.rungs[current.Rank()].MinSales
	span := next.MinSales - floor
	if span <= 0 {
		return 100
	}

	pct := float64(totalSales-floor) / float64(span) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Rungs exposes the ordered table for display.
func (l *Ladder) Rungs() []models.BadgeConfig {
	return append([]models.BadgeConfig(nil), l.rungs...)
}
