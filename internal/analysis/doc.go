// Package analysis characterizes the attractor map for a given set of
// coefficients.
//
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [Classify]: names the regime for an exponent
//   - [BifurcationDiagram]: sweep of one coefficient
//   - [GenerateOrbit]: raw orbit for quick ASCII previews
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda := analysis.LyapunovExponent(p, dynamo.DefaultStart, 10000, 1e-8)
//	if lambda > 0 {
//	    // orbit is chaotic
//	}
package analysis
