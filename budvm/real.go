package budvm

import "math"

const realEpsilon = 2.220446049250313e-16

func realEqual(lhs, rhs float64) bool {
	return math.Abs(lhs-rhs) < realEpsilon
}

func realTotalEqual(lhs, rhs float64) bool {
	switch {
	case math.IsNaN(lhs) || math.IsNaN(rhs):
		return math.IsNaN(lhs) && math.IsNaN(rhs) &&
			math.Signbit(lhs) == math.Signbit(rhs)
	case math.IsInf(lhs, 0) || math.IsInf(rhs, 0):
		return math.IsInf(lhs, 0) && math.IsInf(rhs, 0) &&
			math.Signbit(lhs) == math.Signbit(rhs)
	}
	return realEqual(lhs, rhs)
}

// realTotalCompare orders reals with NaN above everything and two NaNs
// equal. Finite values within epsilon of each other are equal.
func realTotalCompare(lhs, rhs float64) int {
	lhsNaN, rhsNaN := math.IsNaN(lhs), math.IsNaN(rhs)
	switch {
	case lhsNaN && rhsNaN:
		return 0
	case lhsNaN:
		return 1
	case rhsNaN:
		return -1
	}

	lhsInf, rhsInf := math.IsInf(lhs, 0), math.IsInf(rhs, 0)
	lhsPositive, rhsPositive := !math.Signbit(lhs), !math.Signbit(rhs)
	switch {
	case !lhsInf && !rhsInf:
		if realEqual(lhs, rhs) {
			return 0
		}
		if lhs < rhs {
			return -1
		}
		return 1
	case lhsInf && rhsInf && lhsPositive == rhsPositive:
		return 0
	case !lhsInf:
		if rhsPositive {
			return -1
		}
		return 1
	}
	if lhsPositive {
		return 1
	}
	return -1
}
