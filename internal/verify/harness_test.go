package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/shikibetsu/internal/config"
	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/gallery"
	"github.com/hyperjump/shikibetsu/internal/models"
)

const testDims = 32

func testGallery(t *testing.T, labels ...string) *models.Gallery {
	t.Helper()
	if len(labels) == 0 {
		labels = []string{"Cat", "Dog", "Human", "Oak", "Sparrow", "Fox"}
	}
	g, err := gallery.NewGenerator(embedding.NewHashTextBackend(testDims)).Generate(context.Background(), labels)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// smallConfig keeps probe tensors small so projection backends stay fast.
func smallConfig() *config.VerifyConfig {
	return &config.VerifyConfig{ImageSize: 32, Seed: 11}
}

func TestHarness_ProjectionBackendPasses(t *testing.T) {
	h := NewHarness(testGallery(t), smallConfig())
	report := h.Run(context.Background(), embedding.NewProjectionBackend("fp32", testDims, 1))

	if len(report.Backends) != 1 {
		t.Fatalf("Backends = %d, want 1", len(report.Backends))
	}
	b := report.Backends[0]
	if len(b.Probes) != len(SolidColors)+1 {
		t.Errorf("Probes = %d, want %d solid + raw noise", len(b.Probes), len(SolidColors))
	}
	if len(b.Noise) != 5 || b.Stability.Pairs != 10 {
		t.Errorf("noise = %d, pairs = %d; want 5 and 10", len(b.Noise), b.Stability.Pairs)
	}
	if b.Stability.MaxSimilarity >= 0.999 || b.Stability.Collapsed {
		t.Errorf("projection backend should not collapse: %+v", b.Stability)
	}
	if !report.Passed() {
		t.Errorf("report should pass: %+v", report)
	}
	for _, p := range b.Probes {
		if len(p.Top) != 3 {
			t.Errorf("probe %s: %d top results, want 3", p.Name, len(p.Top))
		}
		if p.Target == nil || p.Target.Label != "Human" {
			t.Errorf("probe %s: missing Human rank", p.Name)
		}
	}
	if report.GalleryLabels != 6 || report.Dimensions != testDims || report.ID == "" {
		t.Errorf("report header = %+v", report)
	}
}

func TestHarness_ConstantBackendCollapses(t *testing.T) {
	vec := make([]float32, testDims)
	vec[0], vec[5] = 0.3, -1.2
	h := NewHarness(testGallery(t), smallConfig())
	report := h.Run(context.Background(), embedding.NewConstantBackend("broken", vec))

	b := report.Backends[0]
	if !b.Stability.Collapsed {
		t.Errorf("constant backend should be collapsed: %+v", b.Stability)
	}
	if !b.Stability.LowVariance {
		t.Error("constant backend should also be flagged as low variance")
	}
	if report.Passed() {
		t.Error("report with a collapsed backend must not pass")
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "broken") && strings.Contains(w, "nearly identical") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected collapse warning, got %v", report.Warnings)
	}
}

func TestHarness_IdenticalBackendsAgree(t *testing.T) {
	vec := make([]float32, testDims)
	for i := range vec {
		vec[i] = float32(i%7) - 3
	}
	h := NewHarness(testGallery(t), smallConfig())
	report := h.Run(context.Background(),
		embedding.NewConstantBackend("reference", vec),
		embedding.NewConstantBackend("candidate", vec),
	)
	if len(report.Comparisons) != 1 {
		t.Fatalf("Comparisons = %d, want 1", len(report.Comparisons))
	}
	c := report.Comparisons[0]
	if c.MaxAbsDiff != 0 {
		t.Errorf("MaxAbsDiff = %v, want 0", c.MaxAbsDiff)
	}
	if !c.FullAgreement() || c.RankedProbes != len(SolidColors) {
		t.Errorf("expected full top-1 agreement on %d probes, got %d/%d", len(SolidColors), c.Top1Agreements, c.RankedProbes)
	}
	for _, p := range c.Probes {
		if p.ReferenceMagnitude == 0 {
			t.Errorf("probe %s: reference magnitude not reported", p.Probe)
		}
	}
}

func TestHarness_QuantizedCandidate(t *testing.T) {
	ref := embedding.NewProjectionBackend("fp32", testDims, 3)
	cand := embedding.NewQuantizedBackend("int8", ref, 0.001)
	h := NewHarness(testGallery(t), smallConfig())
	report := h.Run(context.Background(), ref, cand)

	if !report.Passed() {
		t.Fatalf("both backends should pass: %+v", report.Warnings)
	}
	c := report.Comparisons[0]
	if c.Reference != "fp32" || c.Candidate != "int8" {
		t.Errorf("comparison names = %s vs %s", c.Reference, c.Candidate)
	}
	if c.MaxAbsDiff <= 0 || c.MaxAbsDiff > 0.0005+1e-6 {
		t.Errorf("MaxAbsDiff = %v, want within half a quantization step", c.MaxAbsDiff)
	}
	if len(c.Probes) != len(SolidColors)+1+5 {
		t.Errorf("compared %d probes", len(c.Probes))
	}
}

func TestHarness_DeterministicProbes(t *testing.T) {
	g := testGallery(t)
	b := embedding.NewProjectionBackend("fp32", testDims, 9)
	first := NewHarness(g, smallConfig()).Run(context.Background(), b)
	second := NewHarness(g, smallConfig()).Run(context.Background(), b)
	if first.Backends[0].Stability != second.Backends[0].Stability {
		t.Errorf("stability differs between runs: %+v vs %+v", first.Backends[0].Stability, second.Backends[0].Stability)
	}
}

func TestHarness_MissingTargetIsWarning(t *testing.T) {
	h := NewHarness(testGallery(t, "Cat", "Dog", "Fox"), smallConfig())
	report := h.Run(context.Background(), embedding.NewProjectionBackend("fp32", testDims, 1))
	if report.Backends[0].Errors != 0 {
		t.Errorf("missing target should not count as a backend error")
	}
	if len(report.Warnings) == 0 || !strings.Contains(report.Warnings[0], "Human") {
		t.Errorf("expected target warning, got %v", report.Warnings)
	}
	for _, p := range report.Backends[0].Probes {
		if p.Target != nil {
			t.Errorf("probe %s should have no target rank", p.Name)
		}
	}
}

type failingBackend struct {
	embedding.ConstantBackend
	calls int
}

func (b *failingBackend) Embed(ctx context.Context, t *models.ImageTensor) ([]float32, error) {
	b.calls++
	return nil, errors.New("session run failed")
}

func (b *failingBackend) Variant() models.ModelVariant {
	return models.NewModelVariant("failing", models.PrecisionINT8, models.ImageSize, testDims)
}

func TestHarness_BackendErrorsAreRecorded(t *testing.T) {
	fb := &failingBackend{}
	h := NewHarness(testGallery(t), smallConfig())
	report := h.Run(context.Background(), embedding.NewProjectionBackend("fp32", testDims, 1), fb)

	b := report.Backend("failing")
	if b == nil {
		t.Fatal("missing report for failing backend")
	}
	if b.Errors != fb.calls || b.Errors == 0 {
		t.Errorf("Errors = %d, calls = %d", b.Errors, fb.calls)
	}
	if report.Passed() {
		t.Error("report should not pass when a backend errors")
	}
	for _, p := range report.Comparisons[0].Probes {
		if p.Error == "" {
			t.Errorf("probe %s comparison should carry an error", p.Probe)
		}
	}
}

func TestHarness_DimensionMismatchWithGallery(t *testing.T) {
	h := NewHarness(testGallery(t), smallConfig())
	report := h.Run(context.Background(), embedding.NewProjectionBackend("wide", testDims*2, 1))
	if report.Backends[0].Errors == 0 {
		t.Error("ranking against a gallery of another dimension should be reported as errors")
	}
}

func TestHarness_NoGallery(t *testing.T) {
	h := NewHarness(nil, smallConfig())
	report := h.Run(context.Background(), embedding.NewProjectionBackend("fp32", testDims, 1))
	if !report.Passed() {
		t.Error("stability checks should still pass without a gallery")
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning about the missing gallery")
	}
}

func TestHarness_NoBackends(t *testing.T) {
	report := NewHarness(testGallery(t), smallConfig()).Run(context.Background())
	if report.Passed() {
		t.Error("an empty run must not pass")
	}
}

func TestHarness_Clock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHarness(nil, smallConfig(), WithClock(func() time.Time { return fixed }))
	report := h.Run(context.Background(), embedding.NewProjectionBackend("fp32", 4, 1))
	if !report.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v", report.CreatedAt)
	}
}

func TestNoiseProbes(t *testing.T) {
	a, err := NoiseProbes(3, 8, 0.5, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NoiseProbes(3, 8, 0.5, 1)
	c, _ := NoiseProbes(3, 8, 0.5, 2)
	for i := range a {
		if a[i].Name != fmt.Sprintf("noise_%d", i+1) {
			t.Errorf("name = %q", a[i].Name)
		}
		for j := range a[i].Input.Data {
			if a[i].Input.Data[j] != b[i].Input.Data[j] {
				t.Fatal("same seed should give the same probes")
			}
		}
	}
	same := true
	for j := range a[0].Input.Data {
		if a[0].Input.Data[j] != c[0].Input.Data[j] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should give different probes")
	}
}

func TestSolidProbe_IsPreprocessed(t *testing.T) {
	p, err := SolidProbe(SolidColors[0], 4)
	if err != nil {
		t.Fatal(err)
	}
	// (0.94 - 0.48145466) / 0.26862954
	want := float32((0.94 - 0.48145466) / 0.26862954)
	if got := p.Input.Channel(0)[0]; got < want-1e-5 || got > want+1e-5 {
		t.Errorf("red channel = %v, want %v", got, want)
	}
	if p.Expectation == "" || p.Kind != models.ProbeSolid {
		t.Errorf("probe = %+v", p)
	}
}
