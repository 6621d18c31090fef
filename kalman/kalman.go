// Package kalman defines the interface of the Kalman filters used by the assimilation experiments.
package kalman

import (
	assimilate "github.com/milosgajdos/go-assimilate"
	"gonum.org/v1/gonum/mat"
)

// Kalman is Kalman Filter
type Kalman interface {
	// Update corrects background state xb with observation y and returns analysis estimate
	Update(xb, y mat.Vector) (assimilate.Estimate, error)
	// Skip returns background state xb as analysis estimate without assimilating any observation
	Skip(xb mat.Vector) (assimilate.Estimate, error)
	// Predict propagates analysis state xa and returns forecast estimate
	Predict(xa mat.Vector) (assimilate.Estimate, error)
	// Cov returns Kalman filter forecast covariance
	Cov() mat.Symmetric
	// AnalysisCov returns Kalman filter analysis covariance
	AnalysisCov() mat.Symmetric
	// Gain returns Kalman filter gain
	Gain() mat.Matrix
	// LogLikelihood returns log-likelihood of the last innovation
	LogLikelihood() float64
}
