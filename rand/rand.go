package rand

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Factor returns matrix U*sqrt(S) where U and S are the SVD factors of cov,
// so that Factor(cov)*Factor(cov)' equals cov for positive semi-definite cov.
// It fails with error if SVD factorization of cov fails.
func Factor(cov mat.Symmetric) (*mat.Dense, error) {
	if cov == nil || cov.SymmetricDim() == 0 {
		return nil, fmt.Errorf("invalid covariance matrix: %w", assimilate.ErrDimensionMismatch)
	}

	// Use SVD instead of Cholesky as Cholesky fails on (almost) singular cov
	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	diag := mat.NewDiagDense(len(vals), vals)
	U.Mul(U, diag)

	return U, nil
}

// WithFactorN draws n random samples from a zero-mean Normal distribution whose covariance
// is factor*factor'. It returns matrix which contains the samples stored in its columns.
// If rnd is nil the global source is used.
// It fails with error if n is non-positive.
func WithFactorN(factor mat.Matrix, n int, rnd *exprand.Rand) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	rows, cols := factor.Dims()
	data := make([]float64, cols*n)
	for i := range data {
		if rnd != nil {
			data[i] = rnd.NormFloat64()
		} else {
			data[i] = exprand.NormFloat64()
		}
	}
	z := mat.NewDense(cols, n, data)

	samples := mat.NewDense(rows, n, nil)
	samples.Mul(factor, z)

	return samples, nil
}

// WithCovN draws n random samples from a zero-mean Normal (aka Gaussian) distribution with covariance cov.
// It returns matrix which contains the randomly generated samples stored in its columns.
// It fails with error if n is non-positive or if SVD factorization of cov fails.
func WithCovN(cov mat.Symmetric, n int, rnd *exprand.Rand) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	factor, err := Factor(cov)
	if err != nil {
		return nil, err
	}

	return WithFactorN(factor, n, rnd)
}
