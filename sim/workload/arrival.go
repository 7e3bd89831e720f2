package workload

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// MicrosPerSecond converts request rates into the simulation's microsecond clock.
const MicrosPerSecond = 1e6

// ArrivalSampler draws the time until a user's next request.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in microseconds, always >= 1.
	SampleIAT(rng *rand.Rand) int64
}

func atLeastOne(sample float64) int64 {
	if iat := int64(sample); iat >= 1 {
		return iat
	}
	return 1
}

// PoissonSampler draws exponential gaps (CV = 1).
type PoissonSampler struct {
	meanMicros float64
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) int64 {
	return atLeastOne(rng.ExpFloat64() * s.meanMicros)
}

// GammaSampler draws Gamma gaps; CV > 1 makes a user's requests bursty.
type GammaSampler struct {
	shape float64 // 1/CV²
	scale float64 // mean·CV², microseconds
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) int64 {
	return atLeastOne(gammaRand(rng, s.shape, s.scale))
}

// gammaRand samples Gamma(shape, scale) by Marsaglia-Tsang, boosting shape < 1
// through Gamma(a) = Gamma(a+1)·U^(1/a).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*(x*x)*(x*x) || math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler draws Weibull gaps by inverse CDF.
type WeibullSampler struct {
	shape float64 // k
	scale float64 // λ, microseconds
}

func (s *WeibullSampler) SampleIAT(rng *rand.Rand) int64 {
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	return atLeastOne(s.scale * math.Pow(-math.Log(u), 1.0/s.shape))
}

// NewArrivalSampler creates the sampler for spec at ratePerSecond requests per second.
func NewArrivalSampler(spec ArrivalSpec, ratePerSecond float64) ArrivalSampler {
	if ratePerSecond < 1e-9 {
		ratePerSecond = 1e-9
	}
	mean := MicrosPerSecond / ratePerSecond
	cv := 1.0
	if spec.CV != nil && *spec.CV > 0 {
		cv = *spec.CV
	}
	switch spec.Process {
	case "gamma":
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{meanMicros: mean}
		}
		return &GammaSampler{shape: shape, scale: mean * cv * cv}
	case "weibull":
		k := weibullShapeFromCV(cv)
		return &WeibullSampler{shape: k, scale: mean / math.Gamma(1.0+1.0/k)}
	default:
		return &PoissonSampler{meanMicros: mean}
	}
}

// weibullShapeFromCV bisects for k with CV(k) = targetCV; CV falls as k grows.
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: no convergence for CV=%.3f; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
