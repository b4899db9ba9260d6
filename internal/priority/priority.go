// Package priority classifies file paths into priority levels from
// stored pattern rules and records per-file change velocity.
package priority

import (
	"time"

	"filesentry/internal/model"
	"filesentry/internal/scan"
)

// RuleStore is the persistence interface for rules and velocity events.
type RuleStore interface {
	ListPriorityRules() ([]*model.PriorityRule, error)
	InsertVelocityEvent(ev *model.VelocityEvent) error
	RecentVelocityEvents(path string, since time.Time) ([]*model.VelocityEvent, error)
}

// Classifier matches paths against the configured rules. Rules are loaded
// once at construction; the rule set is small and changes only through
// explicit configuration.
type Classifier struct {
	rules []rule
	store RuleStore
	clock scan.Clock
}

type rule struct {
	glob  *scan.Glob
	level string
}

// NewClassifier compiles the stored rules plus any inline config rules.
// Invalid patterns are skipped.
func NewClassifier(store RuleStore, inline []model.PriorityRule, clock scan.Clock, logger scan.Logger) (*Classifier, error) {
	stored, err := store.ListPriorityRules()
	if err != nil {
		return nil, err
	}

	c := &Classifier{store: store, clock: clock}
	add := func(pattern, level string) {
		g, err := scan.CompileGlob(pattern)
		if err != nil {
			logger.Warn("priority rule dropped", "pattern", pattern, "error", err)
			return
		}
		c.rules = append(c.rules, rule{glob: g, level: level})
	}
	for _, r := range stored {
		add(r.Pattern, r.Level)
	}
	for _, r := range inline {
		add(r.Pattern, r.Level)
	}
	return c, nil
}

// Classify returns the level of the first matching rule.
func (c *Classifier) Classify(path string) (string, bool) {
	for _, r := range c.rules {
		if r.glob.Match(path) {
			return r.level, true
		}
	}
	return "", false
}

// RecordChange appends one velocity event for the path.
func (c *Classifier) RecordChange(path, scanID string, status model.FileStatus) error {
	return c.store.InsertVelocityEvent(&model.VelocityEvent{
		FilePath:   path,
		ScanID:     scanID,
		Status:     status,
		RecordedAt: c.clock.Now(),
	})
}

// ChangeCount returns how many changes the path saw in the given window.
func (c *Classifier) ChangeCount(path string, window time.Duration) (int, error) {
	events, err := c.store.RecentVelocityEvents(path, c.clock.Now().Add(-window))
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

var _ scan.PriorityClassifier = (*Classifier)(nil)
