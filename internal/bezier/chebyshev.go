package bezier

import "math"

// chebyshev is a truncated Chebyshev series on [a, b].
type chebyshev struct {
	coeffs []float64
	a, b   float64
}

// chebyshevNodes returns the degree+1 Chebyshev points of the first kind
// mapped to [a, b].
func chebyshevNodes(a, b float64, degree int) []float64 {
	n := degree + 1
	nodes := make([]float64, n)
	for k := range nodes {
		x := math.Cos(math.Pi * (float64(k) + 0.5) / float64(n))
		nodes[k] = a + (b-a)*(x+1)/2
	}
	return nodes
}

// fitChebyshev interpolates the samples values[k] = f(chebyshevNodes[k]).
func fitChebyshev(values []float64, a, b float64) chebyshev {
	n := len(values)
	coeffs := make([]float64, n)
	for j := range coeffs {
		var sum float64
		for k, v := range values {
			sum += v * math.Cos(math.Pi*float64(j)*(float64(k)+0.5)/float64(n))
		}
		coeffs[j] = 2 * sum / float64(n)
	}
	return chebyshev{coeffs: coeffs, a: a, b: b}
}

// eval sums the series at x with Clenshaw's recurrence.
func (c chebyshev) eval(x float64) float64 {
	y := (2*x - c.a - c.b) / (c.b - c.a)
	var b1, b2 float64
	for j := len(c.coeffs) - 1; j >= 1; j-- {
		b1, b2 = 2*y*b1-b2+c.coeffs[j], b1
	}
	return y*b1 - b2 + c.coeffs[0]/2
}
