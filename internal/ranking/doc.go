// Package ranking holds the scoring policy shared by every pipeline stage
// and the small numeric helpers used to report scores.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	policy, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default policy", "error", err)
//	}
//
//	// Report a Layer 1 score against its theoretical maximum
//	match := ranking.MatchPercentage(score, policy.Star.MaxScore)
//
// Calibration:
//
// The calibration file is a JSON document with a "policy" object mirroring
// Policy. Any value left out (or set to zero) keeps its default, so a file
// may override a single coefficient. The policy is validated after merging;
// an invalid result falls back to DefaultPolicy. See
// configs/ranking.calibration.json for the default configuration.
package ranking
