// Package stats turns finalized bins into estimates with error bars.
//
// Primary observables get a mean and a rebinning analysis: adjacent bins are
// merged pairwise level by level and the standard error is recomputed at
// each level. The reported error is taken where the estimate plateaus
// (see Options), which accounts for autocorrelation left inside the bins.
//
// Evaluables are functions of observable means. They are estimated with
// the delete-one jackknife, which removes the first-order bias of nonlinear
// functions and yields errors that include cross-observable correlation,
// because every replicate drops the same bin index from all ingredients.
//
// Plateau rule: level l is accepted if the next PlateauWindow levels all
// exist and none of their errors exceeds E_l*(1+PlateauTolerance) in any
// component. The first accepted level is reported. If no level is accepted
// the last computable level is reported and the estimate is marked as not
// converged. Only levels with at least MinRebinBins bins are computed;
// level 0 is always computed.
package stats
