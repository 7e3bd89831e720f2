package workload

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformSampler_DefaultWhenUnset(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, err := NewSizeSampler(nil, 2, 10)
	require.NoError(t, err)
	n := 10000
	sum := 0.0
	for i := 0; i < n; i++ {
		v := s.Sample(rng)
		if v < 2 || v > 10 {
			t.Fatalf("sample %d: got %f, want in [2, 10]", i, v)
		}
		sum += v
	}
	mean := sum / float64(n)
	if math.Abs(mean-6)/6 > 0.05 {
		t.Errorf("uniform mean = %.2f, want ≈ 6 (within 5%%)", mean)
	}
}

func TestExponentialSampler_MeanMatchesParam(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, err := NewSizeSampler(&DistSpec{Type: "exponential", Params: map[string]float64{"mean": 8}}, 1, 100)
	require.NoError(t, err)
	n := 10000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += s.Sample(rng)
	}
	mean := sum / float64(n)
	if math.Abs(mean-8)/8 > 0.05 {
		t.Errorf("exponential mean = %.2f, want ≈ 8 (within 5%%)", mean)
	}
}

func TestParetoLogNormalSampler_ProducesPositiveValues(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, err := NewSizeSampler(&DistSpec{
		Type: "pareto_lognormal",
		Params: map[string]float64{
			"alpha": 1.5, "xm": 2, "mu": 1.5, "sigma": 1.2, "mix_weight": 0.3,
		},
	}, 1, 100)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		v := s.Sample(rng)
		if !(v > 0) || math.IsInf(v, 0) {
			t.Fatalf("sample %d: got %f, want finite and positive", i, v)
		}
	}
}

func TestParetoLogNormalSampler_MixWeightChangesDistribution(t *testing.T) {
	// GIVEN two samplers with different mix_weights but same RNG seed
	params := func(w float64) *DistSpec {
		return &DistSpec{Type: "pareto_lognormal", Params: map[string]float64{
			"alpha": 1.5, "xm": 20, "mu": 1.0, "sigma": 0.5, "mix_weight": w,
		}}
	}
	s1, err := NewSizeSampler(params(0.9), 1, 100)
	require.NoError(t, err)
	s2, err := NewSizeSampler(params(0.1), 1, 100)
	require.NoError(t, err)
	rng1 := rand.New(rand.NewSource(42))
	rng2 := rand.New(rand.NewSource(42))

	// WHEN samples are drawn
	n := 10000
	sum1, sum2 := 0.0, 0.0
	for i := 0; i < n; i++ {
		sum1 += s1.Sample(rng1)
		sum2 += s2.Sample(rng2)
	}

	// THEN the Pareto-heavy mixture has the larger mean
	assert.Greater(t, sum1/float64(n), sum2/float64(n))
}

func TestLogNormal_IsParetoFree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s, err := NewSizeSampler(&DistSpec{Type: "lognormal", Params: map[string]float64{"mu": 0, "sigma": 0}}, 0.5, 10)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		assert.InDelta(t, 1.0, s.Sample(rng), 1e-12)
	}
}

func TestEmpiricalPDFSampler_ReproducesDistribution(t *testing.T) {
	// GIVEN a simple empirical PDF: {1: 0.5, 4: 0.5}
	rng := rand.New(rand.NewSource(42))
	s := NewEmpiricalPDFSampler(map[float64]float64{1: 0.5, 4: 0.5})

	// WHEN 10000 samples drawn
	n := 10000
	counts := make(map[float64]int)
	for i := 0; i < n; i++ {
		counts[s.Sample(rng)]++
	}

	// THEN each value appears ~50% of the time (within 5%)
	frac := float64(counts[1]) / float64(n)
	if math.Abs(frac-0.5) > 0.05 {
		t.Errorf("P(1) = %.3f, want ≈ 0.5", frac)
	}
}

func TestEmpiricalPDFSampler_SingleBin_AlwaysReturnsThatValue(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, err := NewSizeSampler(&DistSpec{Type: "empirical", Params: map[string]float64{"2.5": 1}}, 1, 10)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		if v := s.Sample(rng); v != 2.5 {
			t.Fatalf("sample %d: got %f, want 2.5", i, v)
		}
	}
}

func TestEmpiricalPDFSampler_NonNormalized_NormalizesAutomatically(t *testing.T) {
	// GIVEN probabilities that sum to 2.0 (not 1.0)
	rng := rand.New(rand.NewSource(42))
	s := NewEmpiricalPDFSampler(map[float64]float64{1: 1.0, 2: 1.0})
	counts := make(map[float64]int)
	n := 10000
	for i := 0; i < n; i++ {
		counts[s.Sample(rng)]++
	}
	frac := float64(counts[1]) / float64(n)
	if frac < 0.45 || frac > 0.55 {
		t.Errorf("P(1) = %.3f, want ≈ 0.5 (non-normalized input should auto-normalize)", frac)
	}
}

func TestNewSizeSampler_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec DistSpec
	}{
		{"unknown type", DistSpec{Type: "unknown"}},
		{"empty empirical", DistSpec{Type: "empirical"}},
		{"non-numeric empirical key", DistSpec{Type: "empirical", Params: map[string]float64{"big": 1}}},
		{"negative empirical size", DistSpec{Type: "empirical", Params: map[string]float64{"-2": 1}}},
		{"exponential without mean", DistSpec{Type: "exponential"}},
		{"zero constant", DistSpec{Type: "constant", Params: map[string]float64{"value": 0}}},
		{"mix weight above one", DistSpec{Type: "pareto_lognormal", Params: map[string]float64{
			"alpha": 1, "xm": 1, "mu": 0, "sigma": 1, "mix_weight": 2,
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSizeSampler(&tt.spec, 1, 10)
			assert.Error(t, err)
		})
	}
}

func TestDocumentSpecs_ClampsSizesToRange(t *testing.T) {
	// GIVEN a constant size distribution above max_size_mb
	spec := &WorkloadSpec{
		Documents: 5, MinSizeMB: 1, MaxSizeMB: 12, ChunkMB: 4,
		SizeDist: &DistSpec{Type: "constant", Params: map[string]float64{"value": 100}},
	}

	// WHEN the catalog sizes are drawn
	specs := DocumentSpecs(spec, rand.New(rand.NewSource(1)))

	// THEN every document has the maximum size
	require.Len(t, specs, 5)
	for _, ds := range specs {
		assert.Equal(t, int64(12*1024*1024), ds.SizeBytes, ds.ID)
	}
}
