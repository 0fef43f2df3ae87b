package drift

import (
	"fmt"
	"strings"
	"testing"
)

func newTestDetector(t *testing.T, opts ...Option) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d
}

func TestDetectDrift_EmptySession(t *testing.T) {
	d := newTestDetector(t)

	got := d.DetectDrift()

	if got.DriftScore != 0 {
		t.Errorf("DriftScore = %v, want 0", got.DriftScore)
	}
	if got.DriftDetected {
		t.Error("DriftDetected = true, want false")
	}
	if len(got.MissingRequirements) != 0 {
		t.Errorf("MissingRequirements = %v, want empty", got.MissingRequirements)
	}
	if len(got.Contradictions) != 0 {
		t.Errorf("Contradictions = %v, want empty", got.Contradictions)
	}
	if len(got.SuggestedReminders) != 0 {
		t.Errorf("SuggestedReminders = %v, want empty", got.SuggestedReminders)
	}
	if got.TopicShift != 0 {
		t.Errorf("TopicShift = %v, want 0", got.TopicShift)
	}
}

func TestRequirementCapture_FirstUserMessagesOnly(t *testing.T) {
	d := newTestDetector(t)

	for i := 0; i < 7; i++ {
		d.AddMessage(RoleUser, fmt.Sprintf("You must handle case%d properly", i))
		d.AddMessage(RoleAssistant, "Understood")
	}

	reqs := d.InitialRequirements()
	if len(reqs) != 5 {
		t.Fatalf("captured %d requirements, want 5", len(reqs))
	}
	if reqs[4] != "You must handle case4 properly" {
		t.Errorf("last captured requirement = %q", reqs[4])
	}
}

func TestRequirementCapture_IgnoresAssistantAndPlainText(t *testing.T) {
	d := newTestDetector(t)

	d.AddMessage(RoleAssistant, "You must not capture this")
	d.AddMessage(RoleUser, "Just saying hello")

	if got := d.InitialRequirements(); len(got) != 0 {
		t.Errorf("InitialRequirements = %v, want empty", got)
	}
}

func TestDetectDrift_AdherenceFollowed(t *testing.T) {
	d := newTestDetector(t)

	d.AddMessage(RoleUser, "You must use PostgreSQL for storage")
	d.AddMessage(RoleAssistant, "I created the PostgreSQL storage schema and it must pass review")

	got := d.DetectDrift()

	if len(got.MissingRequirements) != 0 {
		t.Errorf("MissingRequirements = %v, want empty", got.MissingRequirements)
	}
	if got.DriftDetected {
		t.Errorf("DriftDetected = true with score %v, want false", got.DriftScore)
	}
}

func TestDetectDrift_MissingRequirementRaisesScore(t *testing.T) {
	d := newTestDetector(t)

	d.AddMessage(RoleUser, "You must use PostgreSQL for storage")
	d.AddMessage(RoleAssistant, "Working on unrelated cleanup")

	got := d.DetectDrift()

	if len(got.MissingRequirements) != 1 {
		t.Fatalf("MissingRequirements = %v, want one entry", got.MissingRequirements)
	}
	if got.DriftScore < 0.4 {
		t.Errorf("DriftScore = %v, want at least the adherence weight", got.DriftScore)
	}
	if !got.DriftDetected {
		t.Error("DriftDetected = false, want true")
	}

	found := false
	for _, r := range got.SuggestedReminders {
		if strings.Contains(r, "PostgreSQL") {
			found = true
		}
	}
	if !found {
		t.Errorf("SuggestedReminders = %v, want reminder about PostgreSQL", got.SuggestedReminders)
	}
}

func TestDetectDrift_ContradictionDetected(t *testing.T) {
	d := newTestDetector(t)

	d.AddMessage(RoleAssistant, "We will use Redis for caching")
	d.AddMessage(RoleAssistant, "Actually let's use Memcached instead")

	got := d.DetectDrift()

	if len(got.Contradictions) != 1 {
		t.Fatalf("Contradictions = %v, want one", got.Contradictions)
	}
	c := got.Contradictions[0]
	if c.Severity != SeverityLow {
		t.Errorf("Severity = %q, want low for adjacent messages", c.Severity)
	}
	if !strings.Contains(c.Earlier, "Redis") || !strings.Contains(c.Later, "Memcached") {
		t.Errorf("contradiction pairing wrong: %+v", c)
	}
}

func TestDetectDrift_SameSubjectIsNotContradiction(t *testing.T) {
	d := newTestDetector(t)

	d.AddMessage(RoleAssistant, "We will use Redis for caching")
	d.AddMessage(RoleAssistant, "Right, use Redis instead")

	if got := d.DetectDrift(); len(got.Contradictions) != 0 {
		t.Errorf("Contradictions = %v, want none for same subject", got.Contradictions)
	}
}

func TestDetectDrift_SeverityByDistance(t *testing.T) {
	tests := []struct {
		name    string
		fillers int
		want    Severity
	}{
		{name: "adjacent is low", fillers: 0, want: SeverityLow},
		{name: "six apart is medium", fillers: 5, want: SeverityMedium},
		{name: "eleven apart is high", fillers: 10, want: SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t)
			d.AddMessage(RoleAssistant, "We will use Redis for caching")
			for i := 0; i < tt.fillers; i++ {
				d.AddMessage(RoleAssistant, "Implemented another piece of the work")
			}
			d.AddMessage(RoleAssistant, "Let's use Memcached instead")

			got := d.DetectDrift()
			if len(got.Contradictions) != 1 {
				t.Fatalf("Contradictions = %v, want one", got.Contradictions)
			}
			if got.Contradictions[0].Severity != tt.want {
				t.Errorf("Severity = %q, want %q", got.Contradictions[0].Severity, tt.want)
			}
		})
	}
}

func TestDetectDrift_ContradictionListCapped(t *testing.T) {
	d := newTestDetector(t)

	for i := 0; i < 8; i++ {
		d.AddMessage(RoleAssistant, fmt.Sprintf("We will use tool%d here", i))
		d.AddMessage(RoleAssistant, fmt.Sprintf("Use other%d instead", i))
	}

	got := d.DetectDrift()
	if len(got.Contradictions) != DefaultConfig().MaxContradictions {
		t.Errorf("retained %d contradictions, want %d",
			len(got.Contradictions), DefaultConfig().MaxContradictions)
	}
}

func TestDetectDrift_TopicShift(t *testing.T) {
	d := newTestDetector(t)

	for i := 0; i < 10; i++ {
		d.AddMessage(RoleAssistant, "Wired up the login password flow")
	}
	for i := 0; i < 10; i++ {
		d.AddMessage(RoleAssistant, "Configured the docker rollout")
	}

	got := d.DetectDrift()

	if got.TopicShift != 1 {
		t.Errorf("TopicShift = %v, want 1 for disjoint themes", got.TopicShift)
	}
	if !got.DriftDetected {
		t.Errorf("DriftDetected = false with score %v, want true", got.DriftScore)
	}
}

func TestDetectDrift_ShortHistoryHasNoTopicShift(t *testing.T) {
	d := newTestDetector(t)

	d.AddMessage(RoleAssistant, "Wired up the login password flow")
	d.AddMessage(RoleAssistant, "Configured the docker rollout")

	// Both windows cover the same two messages, so the theme sets match.
	if got := d.DetectDrift(); got.TopicShift != 0 {
		t.Errorf("TopicShift = %v, want 0", got.TopicShift)
	}
}

func TestDetectDrift_ScoreStaysBounded(t *testing.T) {
	d := newTestDetector(t)

	d.AddMessage(RoleUser, "You must keep the changelog updated and never skip entries")
	for i := 0; i < 15; i++ {
		d.AddMessage(RoleAssistant, fmt.Sprintf("We will use alpha%d for this", i))
		d.AddMessage(RoleAssistant, fmt.Sprintf("Use beta%d instead", i))
	}
	for i := 0; i < 10; i++ {
		d.AddMessage(RoleAssistant, "Tuning cache latency throughput")
	}

	got := d.DetectDrift()

	if got.DriftScore < 0 || got.DriftScore > 1 {
		t.Fatalf("DriftScore = %v, want within [0,1]", got.DriftScore)
	}
	if !got.DriftDetected {
		t.Error("DriftDetected = false for a heavily drifted session")
	}
	if got.TopicShift < 0 || got.TopicShift > 1 {
		t.Errorf("TopicShift = %v, want within [0,1]", got.TopicShift)
	}
}

func TestDetectDrift_CriticalSourceReminders(t *testing.T) {
	source := func(limit int) []string {
		return []string{"Use parameterized queries", "Ship behind the feature flag"}
	}
	d := newTestDetector(t, WithCriticalSource(source))

	d.AddMessage(RoleUser, "Please make sure migrations are reversible")
	d.AddMessage(RoleAssistant, "Did something else entirely")

	got := d.DetectDrift()

	var critical int
	for _, r := range got.SuggestedReminders {
		if strings.HasPrefix(r, "Keep in mind: ") {
			critical++
		}
	}
	if critical != 2 {
		t.Errorf("critical reminders = %d, want 2 (got %v)", critical, got.SuggestedReminders)
	}
}

func TestNewDetector_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopicWindow = 0
	if _, err := NewDetector(cfg); err == nil {
		t.Error("NewDetector() with zero window succeeded, want error")
	}
}
