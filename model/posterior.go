// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package model

import (
	"github.com/gorse-io/statmodel/base"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// ConstraintSystem is the latent-space posterior of a model given point observations
// with covariance Σᵢ:
//
//	M  = Σᵢ Qᵢᵗ·Σᵢ⁻¹·Qᵢ + I
//	α* = M⁻¹·Σᵢ Qᵢᵗ·Σᵢ⁻¹·(sᵢ − μᵢ)
//
// where Qᵢ and μᵢ are the rows of W and mean at the observed point.
type ConstraintSystem struct {
	MInverse     *mat.Dense
	Coefficients *mat.VecDense
}

// BuildConstraintSystem solves the posterior latent distribution for the observations.
// A covariance that cannot be inverted fails with ErrSingularCovariance.
func (m *StatisticalModel[D]) BuildConstraintSystem(pointValues []PointValueWithCovariance) (*ConstraintSystem, error) {
	k := m.GetNumberOfPrincipalComponents()
	dim := m.representer.Dimensions()
	matM := mat.NewDense(k, k, nil)
	rhs := mat.NewVecDense(k, nil)
	for i, pv := range pointValues {
		if len(pv.Value) != dim {
			return nil, base.InvalidInputf("constraint %d has %d components, expect %d", i, len(pv.Value), dim)
		}
		if pv.Covariance == nil {
			return nil, base.InvalidInputf("constraint %d has no covariance", i)
		}
		if r, c := pv.Covariance.Dims(); r != dim || c != dim {
			return nil, base.InvalidInputf("constraint %d has %dx%d covariance, expect %dx%d", i, r, c, dim, dim)
		}
		var precision mat.Dense
		if err := precision.Inverse(pv.Covariance); err != nil {
			return nil, base.SingularCovariancef("covariance of constraint %d is not invertible: %v", i, err)
		}
		ptId, err := m.representer.PointIdForPoint(pv.Point)
		if err != nil {
			return nil, errors.Trace(err)
		}
		rows, err := m.GetJacobianAtPointId(ptId)
		if err != nil {
			return nil, errors.Trace(err)
		}
		mean, err := m.DrawMeanAtPointId(ptId)
		if err != nil {
			return nil, errors.Trace(err)
		}
		residual := mat.NewVecDense(dim, nil)
		for c := 0; c < dim; c++ {
			residual.SetVec(c, pv.Value[c]-mean[c])
		}
		// L = Σ⁻¹·Q
		var matL mat.Dense
		matL.Mul(&precision, rows)
		var term mat.Dense
		term.Mul(rows.T(), &matL)
		matM.Add(matM, &term)
		var projected mat.VecDense
		projected.MulVec(matL.T(), residual)
		rhs.AddVec(rhs, &projected)
	}
	addDiagonal(matM, 1)
	mInverse, err := Inverse(matM)
	if err != nil {
		return nil, errors.Trace(err)
	}
	coefficients := mat.NewVecDense(k, nil)
	coefficients.MulVec(mInverse, rhs)
	return &ConstraintSystem{MInverse: mInverse, Coefficients: coefficients}, nil
}
