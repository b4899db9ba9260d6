package priority_test

import (
	"testing"
	"time"

	"filesentry/internal/model"
	"filesentry/internal/priority"
	"filesentry/internal/scan"
	"filesentry/internal/testutil"
)

func TestClassifier_Classify(t *testing.T) {
	st := testutil.NewTestStore(t)
	if _, err := st.InsertPriorityRule("wp-config.php", model.PriorityCritical); err != nil {
		t.Fatal(err)
	}

	inline := []model.PriorityRule{{Pattern: "*.htaccess", Level: "high"}}
	c, err := priority.NewClassifier(st, inline, testutil.FixedClock(), scan.NewNopLogger())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	tests := []struct {
		path      string
		wantLevel string
		wantOK    bool
	}{
		{"wp-config.php", model.PriorityCritical, true},
		{"sub/dir/wp-config.php", model.PriorityCritical, true}, // base name match
		{"site/.htaccess", "high", true},
		{"index.php", "", false},
	}
	for _, tt := range tests {
		level, ok := c.Classify(tt.path)
		if level != tt.wantLevel || ok != tt.wantOK {
			t.Errorf("Classify(%q) = %q, %v, want %q, %v", tt.path, level, ok, tt.wantLevel, tt.wantOK)
		}
	}
}

func TestClassifier_FirstMatchWins(t *testing.T) {
	st := testutil.NewTestStore(t)
	if _, err := st.InsertPriorityRule("core/*", model.PriorityCritical); err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertPriorityRule("*.php", "low"); err != nil {
		t.Fatal(err)
	}

	c, err := priority.NewClassifier(st, nil, testutil.FixedClock(), scan.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if level, _ := c.Classify("core/kernel.php"); level != model.PriorityCritical {
		t.Errorf("Classify() = %q, want first rule's level", level)
	}
}

func TestClassifier_VelocityTracking(t *testing.T) {
	st := testutil.NewTestStore(t)
	clock := testutil.FixedClock()
	c, err := priority.NewClassifier(st, nil, clock, scan.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.RecordChange("a.php", "scan-1", model.FileChanged); err != nil {
		t.Fatalf("RecordChange() error = %v", err)
	}
	clock.Advance(time.Hour)
	if err := c.RecordChange("a.php", "scan-2", model.FileChanged); err != nil {
		t.Fatal(err)
	}

	count, err := c.ChangeCount("a.php", 30*time.Minute)
	if err != nil {
		t.Fatalf("ChangeCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("ChangeCount(30m) = %d, want 1", count)
	}

	count, err = c.ChangeCount("a.php", 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("ChangeCount(2h) = %d, want 2", count)
	}
}
