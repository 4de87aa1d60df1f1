package dicelang

import (
	"testing"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestCryptoRoller_bounds(t *testing.T) {
	roller := CryptoRoller{}
	for _, sides := range []int64{1, 2, 6, 20, 100} {
		for i := 0; i < 1000; i++ {
			face, err := roller.RollDie(sides)
			if err != nil {
				t.Fatalf("RollDie(%d) unexpected error: %v", sides, err)
			}
			if face < 1 || face > sides {
				t.Fatalf("RollDie(%d) = %d, out of range", sides, face)
			}
		}
	}
}

func TestCryptoRoller_uniformity(t *testing.T) {
	numberOfBuckets := int64(20)
	numberOfLoops := 200000
	roller := CryptoRoller{}
	m := make(map[int64]int)
	for i := 0; i < numberOfLoops; i++ {
		face, err := roller.RollDie(numberOfBuckets)
		if err != nil {
			t.Fatalf("RollDie() unexpected error: %v", err)
		}
		m[face]++
	}
	if len(m) != int(numberOfBuckets) {
		t.Errorf("bad distribution of random numbers: %d of %d faces seen", len(m), numberOfBuckets)
	}
	var obs []float64
	var exp []float64
	expv := float64(int64(numberOfLoops) / numberOfBuckets)
	for e := range m {
		obs = append(obs, float64(m[e]))
		exp = append(exp, expv)
	}
	c := stat.ChiSquare(obs, exp)
	p := 1 - distuv.ChiSquared{K: float64(numberOfBuckets - 1), Src: nil}.CDF(c)
	t.Logf("chi2=%v, df=%v, p=%v", c, numberOfBuckets-1, p)
	if p < 0.001 {
		t.Errorf("chi-square p=%v, distribution looks non-uniform", p)
	}
}
