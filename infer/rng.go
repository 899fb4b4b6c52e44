package infer

import (
	"math/rand"
	"time"

	"github.com/seehuhn/mt19937"
)

// newRNG returns a private Mersenne Twister source wrapped in *rand.Rand,
// seeded from seed if given or from the current time otherwise. Each
// sampler or solver owns its own generator; parallel chains never share
// a global RNG.
func newRNG(seed *int64) *rand.Rand {
	src := mt19937.New()
	if seed != nil {
		src.Seed(*seed)
	} else {
		src.Seed(time.Now().UnixNano())
	}
	return rand.New(src)
}
