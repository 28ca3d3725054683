package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StateMean is the 1x8 state vector (x, y, a, h, vx, vy, va, vh) in Xyah
// space with velocities
type StateMean []float64

// StateCov represents the 8x8 state covariance matrix
type StateCov struct {
	*mat.Dense
}

// StateHMean is the 1x4 state vector projected to measurement space
type StateHMean []float64

// StateHCov represents the 4x4 covariance projected to measurement space
type StateHCov struct {
	*mat.SymDense
}

// KalmanFilter is a constant velocity Kalman filter for boxes in Xyah space
type KalmanFilter struct {
	stdWeightPosition float64
	stdWeightVelocity float64
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter.  The weights
// scale the process and measurement noise relative to the box height.
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity float64) *KalmanFilter {

	const ndim = 4
	const dt = 1.0

	// motionMat is identity with dt coupling each position to its velocity
	motionMat := mat.NewDense(2*ndim, 2*ndim, nil)

	for i := 0; i < 2*ndim; i++ {
		motionMat.Set(i, i, 1)
	}

	for i := 0; i < ndim; i++ {
		motionMat.Set(i, ndim+i, dt)
	}

	// updateMat selects the position half of the state
	updateMat := mat.NewDense(ndim, 2*ndim, nil)

	for i := 0; i < ndim; i++ {
		updateMat.Set(i, i, 1)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// Initiate creates the state mean and covariance of a new track from an
// unassociated measurement.  Velocities start at zero.
func (kf *KalmanFilter) Initiate(measurement Xyah) (StateMean, *StateCov) {

	mean := make(StateMean, 8)
	copy(mean[:4], measurement[:])

	h := measurement[3]

	std := [8]float64{
		2 * kf.stdWeightPosition * h,  // x position
		2 * kf.stdWeightPosition * h,  // y position
		1e-2,                          // aspect ratio
		2 * kf.stdWeightPosition * h,  // height
		10 * kf.stdWeightVelocity * h, // x velocity
		10 * kf.stdWeightVelocity * h, // y velocity
		1e-5,                          // aspect ratio velocity
		10 * kf.stdWeightVelocity * h, // height velocity
	}

	cov := mat.NewDense(8, 8, nil)

	for i, v := range std {
		cov.Set(i, i, v*v)
	}

	return mean, &StateCov{cov}
}

// Predict runs the prediction step, updating mean and covariance in place
func (kf *KalmanFilter) Predict(mean StateMean, covariance *StateCov) {

	h := mean[3]

	std := [8]float64{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-2,
		kf.stdWeightPosition * h,
		kf.stdWeightVelocity * h,
		kf.stdWeightVelocity * h,
		1e-5,
		kf.stdWeightVelocity * h,
	}

	variances := make([]float64, 8)

	for i, v := range std {
		variances[i] = v * v
	}

	motionCov := mat.NewDiagDense(8, variances)

	var next mat.VecDense
	next.MulVec(kf.motionMat, mat.NewVecDense(8, append([]float64(nil), mean...)))
	copy(mean, next.RawVector().Data)

	var cov mat.Dense
	cov.Product(kf.motionMat, covariance.Dense, kf.motionMat.T())
	cov.Add(&cov, motionCov)

	covariance.Dense = &cov
}

// Update runs the correction step with a new measurement, updating mean and
// covariance in place
func (kf *KalmanFilter) Update(mean StateMean, covariance *StateCov,
	measurement Xyah) error {

	projectedMean, projectedCov := kf.Project(mean, covariance)

	var chol mat.Cholesky

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// the transposed kalman gain solves S * K^T = (P * H^T)^T
	var pht mat.Dense
	pht.Mul(covariance.Dense, kf.updateMat.T())

	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, pht.T()); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	innovation := mat.NewVecDense(4, []float64{
		measurement[0] - projectedMean[0],
		measurement[1] - projectedMean[1],
		measurement[2] - projectedMean[2],
		measurement[3] - projectedMean[3],
	})

	var delta mat.VecDense
	delta.MulVec(gainT.T(), innovation)

	for i := range mean {
		mean[i] += delta.AtVec(i)
	}

	// P = P - K * S * K^T
	var correction mat.Dense
	correction.Product(gainT.T(), projectedCov.SymDense, &gainT)

	var cov mat.Dense
	cov.Sub(covariance.Dense, &correction)

	covariance.Dense = &cov

	return nil
}

// Project projects the state mean and covariance to measurement space
func (kf *KalmanFilter) Project(mean StateMean,
	covariance *StateCov) (StateHMean, *StateHCov) {

	h := mean[3]

	std := [4]float64{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-1,
		kf.stdWeightPosition * h,
	}

	var projected mat.VecDense
	projected.MulVec(kf.updateMat, mat.NewVecDense(8, append([]float64(nil), mean...)))

	var hph mat.Dense
	hph.Product(kf.updateMat, covariance.Dense, kf.updateMat.T())

	projectedCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			v := hph.At(i, j)
			if i == j {
				v += std[i] * std[i]
			}
			projectedCov.SetSym(i, j, v)
		}
	}

	projectedMean := make(StateHMean, 4)
	copy(projectedMean, projected.RawVector().Data)

	return projectedMean, &StateHCov{projectedCov}
}
