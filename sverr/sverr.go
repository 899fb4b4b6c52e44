// Package sverr defines the sentinel errors shared by Sever's inference
// packages. Structural failures use these values with errors.Is; domain
// (numerical) issues never surface as errors; they propagate as -Inf/NaN
// and are left for the caller to reject.
package sverr

import "errors"

var (
	// InvalidVariable is returned when a name is not present in an
	// autodiff graph or a variational solver.
	InvalidVariable = errors.New("sever: invalid variable")

	// InvalidOperation is returned when an autodiff primitive or a
	// forward-mode evaluator is asked to process an unsupported
	// expression variant.
	InvalidOperation = errors.New("sever: invalid operation")

	// NotImplemented is returned by sampling methods this component
	// declares but does not implement (gibbs, nuts, slice, ...).
	NotImplemented = errors.New("sever: method not implemented")

	// InsufficientChains is returned by diagnostics that need at least
	// two finished chains.
	InsufficientChains = errors.New("sever: insufficient chains")

	// InsufficientData is returned by diagnostics when a chain has
	// fewer than two recorded samples.
	InsufficientData = errors.New("sever: insufficient data")

	// InvalidModel is returned when graphical-model validation finds a
	// missing parent or an unfilled observation.
	InvalidModel = errors.New("sever: invalid model")

	// InvalidWeight is returned when a mixture component weight is
	// non-positive.
	InvalidWeight = errors.New("sever: invalid mixture weight")

	// WeightsNotNormalized is returned when mixture weights do not sum
	// to 1 within tolerance.
	WeightsNotNormalized = errors.New("sever: mixture weights not normalized")

	// EmptyMixture is returned when a mixture is constructed with no
	// components.
	EmptyMixture = errors.New("sever: empty mixture")

	// OutOfMemory signals a fatal allocation failure.
	OutOfMemory = errors.New("sever: out of memory")

	// IoError signals a fatal I/O failure (e.g. trace export).
	IoError = errors.New("sever: io error")
)
