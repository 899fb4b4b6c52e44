package infer

import "math/rand"

// expRandSource adapts a *rand.Rand (math/rand) to the
// golang.org/x/exp/rand.Source interface expected by gonum's distuv
// types, so sampling continues to draw from the caller's own RNG
// stream instead of a package-global source.
type expRandSource struct{ r *rand.Rand }

func (s expRandSource) Uint64() uint64   { return s.r.Uint64() }
func (s expRandSource) Seed(seed uint64) { s.r.Seed(int64(seed)) }
