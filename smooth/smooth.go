// Package smooth defines smoothers of assimilation estimates.
package smooth

import assimilate "github.com/milosgajdos/go-assimilate"

// Smoother smooths a time ordered sequence of analysis estimates using
// the information of all later estimates.
type Smoother interface {
	// Smooth returns smoothed estimates
	Smooth(est []assimilate.Estimate) ([]assimilate.Estimate, error)
}
