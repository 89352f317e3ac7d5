package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientSamples is returned when a regression has fewer rows
	// than parameters.
	ErrInsufficientSamples = errors.New("insufficient samples for regression")
	// ErrSingular is returned when the normal matrix is rank deficient.
	ErrSingular = errors.New("singular regression matrix")
)

// pinvCutoff is the relative singular value cutoff of the pseudo-inverse.
const pinvCutoff = 1e-15

const machineEpsilon = 0x1p-52

// FitOLS fits y = b0 + b1*x1 + ... + bk*xk by ordinary least squares and
// returns [b0, b1, ..., bk]. The coefficients are pinv(XᵀX)·Xᵀy where X is
// x with a leading column of ones. Every row of x must have the same width.
func FitOLS(y []float64, x [][]float64) ([]float64, error) {
	n := len(y)
	if n != len(x) {
		return nil, fmt.Errorf("got %d targets for %d rows", n, len(x))
	}
	k := 0
	if n > 0 {
		k = len(x[0])
	}
	p := k + 1
	if n < p {
		return nil, fmt.Errorf("%w: %d rows for %d parameters", ErrInsufficientSamples, n, p)
	}

	design := mat.NewDense(n, p, nil)
	for i, row := range x {
		if len(row) != k {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), k)
		}
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	var normal mat.Dense
	normal.Mul(design.T(), design)

	pinv, err := pseudoInverse(&normal)
	if err != nil {
		return nil, err
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), mat.NewVecDense(n, y))

	var beta mat.VecDense
	beta.MulVec(pinv, &xty)

	out := make([]float64, p)
	for i := range out {
		out[i] = beta.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, ErrSingular
		}
	}
	return out, nil
}

// pseudoInverse computes the Moore-Penrose inverse of the square symmetric
// matrix a through its singular value decomposition. It fails with
// ErrSingular when a is numerically rank deficient.
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, ErrSingular
	}

	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return nil, ErrSingular
	}

	// Rank tolerance follows the usual max(s)*dim*eps convention.
	r, _ := a.Dims()
	tol := values[0] * float64(r) * machineEpsilon
	cutoff := values[0] * pinvCutoff

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	inv := mat.NewDiagDense(len(values), nil)
	for i, s := range values {
		if s <= tol {
			return nil, ErrSingular
		}
		if s > cutoff {
			inv.SetDiag(i, 1/s)
		}
	}

	var tmp, out mat.Dense
	tmp.Mul(&v, inv)
	out.Mul(&tmp, u.T())
	return &out, nil
}

// Predict evaluates fitted coefficients at x.
func Predict(beta, x []float64) float64 {
	if len(beta) != len(x)+1 {
		return math.NaN()
	}
	y := beta[0]
	for i, v := range x {
		y += beta[i+1] * v
	}
	return y
}
