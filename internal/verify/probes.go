package verify

import (
	"fmt"
	"math/rand/v2"

	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/preprocess"
)

// Probe is a synthetic input fed identically to every backend under test.
type Probe struct {
	Name        string
	Kind        string
	Expectation string
	// Input is the tensor handed to backends. For solid and noise probes it has been through
	// preprocess.Normalize; the raw noise probe is fed as generated.
	Input *models.ImageTensor
}

// SolidColor is a uniform RGB probe colour in [0,1] with a reporting-only expectation.
type SolidColor struct {
	Name        string
	RGB         [3]float32
	Expectation string
}

// SolidColors is the fixed solid-colour battery.
var SolidColors = []SolidColor{
	{"skin_tone", [3]float32{0.94, 0.78, 0.67}, "Should lean toward mammals/humans"},
	{"green_foliage", [3]float32{0.2, 0.6, 0.2}, "Should lean toward plants"},
	{"blue_sky", [3]float32{0.5, 0.7, 0.95}, "Should lean toward birds"},
	{"orange_fur", [3]float32{0.9, 0.5, 0.1}, "Should lean toward mammals"},
}

// SolidProbe builds a preprocessed uniform-colour probe.
func SolidProbe(c SolidColor, size int) (Probe, error) {
	pixels := models.NewImageTensor(models.ImageChannels, size, size)
	for ch, v := range c.RGB {
		pixels.FillChannel(ch, v)
	}
	input, err := preprocess.Normalize(pixels)
	if err != nil {
		return Probe{}, fmt.Errorf("solid probe %s: %w", c.Name, err)
	}
	return Probe{Name: c.Name, Kind: models.ProbeSolid, Expectation: c.Expectation, Input: input}, nil
}

// NoiseProbes builds n preprocessed standard-normal probes scaled by scale. The same seed always
// produces the same tensors.
func NoiseProbes(n, size int, scale float64, seed uint64) ([]Probe, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	probes := make([]Probe, 0, n)
	for i := 0; i < n; i++ {
		pixels := models.NewImageTensor(models.ImageChannels, size, size)
		for j := range pixels.Data {
			pixels.Data[j] = float32(rng.NormFloat64() * scale)
		}
		input, err := preprocess.Normalize(pixels)
		if err != nil {
			return nil, fmt.Errorf("noise probe %d: %w", i+1, err)
		}
		probes = append(probes, Probe{
			Name:  fmt.Sprintf("noise_%d", i+1),
			Kind:  models.ProbeNoise,
			Input: input,
		})
	}
	return probes, nil
}

// RawNoiseProbe builds an unscaled standard-normal tensor that skips preprocessing. It shows how a
// backend behaves on input outside the normalized range and is informational only.
func RawNoiseProbe(size int, seed uint64) Probe {
	rng := rand.New(rand.NewPCG(^seed, seed))
	input := models.NewImageTensor(models.ImageChannels, size, size)
	for j := range input.Data {
		input.Data[j] = float32(rng.NormFloat64())
	}
	return Probe{
		Name:        "raw_noise",
		Kind:        models.ProbeRawNoise,
		Expectation: "Sanity check: unnormalized noise",
		Input:       input,
	}
}
