package summary

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
)

func sev(id, s string) model.Vulnerability {
	return model.Vulnerability{ID: id, Severity: model.String(s)}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	require.NotNil(t, s)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.RiskScore)
	assert.Empty(t, s.Recommendations)
}

func TestSummarize_CriticalAndHigh(t *testing.T) {
	s := Summarize([]model.Vulnerability{sev("A", "CRITICAL"), sev("B", "HIGH")})
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Critical)
	assert.Equal(t, 1, s.High)
	assert.Equal(t, 8.5, s.WeightedScore)
	assert.Equal(t, 8.5, s.RiskScore)
}

func TestBucket(t *testing.T) {
	tests := []struct {
		v    model.Vulnerability
		want string
	}{
		{sev("a", "critical"), model.SeverityCritical},
		{sev("b", "High"), model.SeverityHigh},
		{sev("c", "MODERATE"), model.SeverityMedium},
		{sev("d", "low"), model.SeverityLow},
		{model.Vulnerability{CVSSScore: model.Float(9.1)}, model.SeverityCritical},
		{model.Vulnerability{CVSSScore: model.Float(7.0)}, model.SeverityHigh},
		{model.Vulnerability{CVSSScore: model.Float(5.3)}, model.SeverityMedium},
		{model.Vulnerability{CVSSScore: model.Float(2.0)}, model.SeverityLow},
		{model.Vulnerability{Severity: model.String("weird")}, ""},
		{model.Vulnerability{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.v))
	}
}

func TestSummarize_UnknownExcludedFromScore(t *testing.T) {
	s := Summarize([]model.Vulnerability{sev("A", "LOW"), {ID: "B"}})
	assert.Equal(t, 1, s.Low)
	assert.Equal(t, 1, s.Unknown)
	assert.Equal(t, 1.0, s.RiskScore)
}

func TestRiskScore_Modifiers(t *testing.T) {
	tests := []struct {
		name        string
		weighted    float64
		exploited   int
		withExploit int
		want        float64
	}{
		{"no modifiers", 4, 0, 0, 4},
		{"one exploited", 4, 1, 0, 4.5},
		{"mixed", 4, 1, 2, 5},
		{"modifier capped", 4, 10, 10, 6},
		{"clamped to ten", 10, 1, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskScore(tt.weighted, tt.exploited, tt.withExploit))
		})
	}
}

func TestSummarize_HistogramsAndCounts(t *testing.T) {
	vulns := []model.Vulnerability{
		{
			ID:                "CVE-2024-1",
			Severity:          model.String("CRITICAL"),
			ActivelyExploited: model.Bool(true),
			ExploitAvailable:  model.Bool(true),
			Category:          model.String(vuln.CategoryRCE),
			AttackVector:      model.String(vuln.VectorWeb),
			MitreTactics:      []string{"Initial Access", "Execution"},
		},
		{
			ID:           "CVE-2024-2",
			Severity:     model.String("MEDIUM"),
			Category:     model.String(vuln.CategoryRCE),
			AttackVector: model.String(vuln.VectorNetwork),
			MitreTactics: []string{"Execution"},
		},
	}
	s := Summarize(vulns)
	assert.Equal(t, 1, s.ActivelyExploited)
	assert.Equal(t, 1, s.ExploitAvailable)
	assert.Equal(t, map[string]int{vuln.CategoryRCE: 2}, s.Categories)
	assert.Equal(t, map[string]int{vuln.VectorWeb: 1, vuln.VectorNetwork: 1}, s.AttackVectors)
	assert.Equal(t, map[string]int{"Initial Access": 1, "Execution": 2}, s.MitreTactics)
	// (10+4)/2 = 7, +0.5 +0.25
	assert.Equal(t, 7.0, s.WeightedScore)
	assert.Equal(t, 7.8, s.RiskScore)
}

func TestSummarize_Recommendations(t *testing.T) {
	vulns := []model.Vulnerability{
		{ID: "CVE-1", Severity: model.String("HIGH"), ActivelyExploited: model.Bool(true), Mitigation: model.String("Upgrade foo")},
		{ID: "CVE-2", Severity: model.String("CRITICAL"), Mitigation: model.String("Upgrade foo")},
		{ID: "CVE-3", Severity: model.String("LOW"), Mitigation: model.String("ignored for low")},
		{ID: "X", Category: model.String(vuln.CategoryInjection)},
	}
	s := Summarize(vulns)
	assert.Equal(t, []string{
		"Patch actively exploited CVE-1 immediately",
		"Upgrade foo",
		defaultAdvice,
		categoryAdvice[vuln.CategoryInjection],
	}, s.Recommendations)
}

func TestSummarize_RecommendationsCapped(t *testing.T) {
	var vulns []model.Vulnerability
	for i := 0; i < 8; i++ {
		vulns = append(vulns, model.Vulnerability{ID: fmt.Sprintf("CVE-%d", i), ActivelyExploited: model.Bool(true)})
	}
	s := Summarize(vulns)
	assert.Len(t, s.Recommendations, maxRecommendations)
}
