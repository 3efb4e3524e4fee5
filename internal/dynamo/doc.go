// Package dynamo provides the core primitives for the attractor map.
//
// The package defines the value types and the recurrence that every host
// renders:
//
//   - [Point]: an (x, y) coordinate pair
//   - [Params]: the four coefficients a, b, c, d of the map
//   - [ParamSource]: fixed or seeded-random choice of [Params]
//   - [Generator]: holds the current point and advances it one step at a time
//
// The map is
//
//	x' = sin(b*y) - c*sin(b*x)
//	y' = sin(a*x) + d*cos(a*y)
//
// # Example
//
//	g := dynamo.NewGenerator(dynamo.DefaultStart, dynamo.CanonicalParams)
//	for i := 0; i < 10; i++ {
//	    p := g.Step()
//	    fmt.Println(p.X, p.Y)
//	}
//
// # Thread Safety
//
// Generator instances are NOT thread-safe. Each canvas owns exactly one.
package dynamo
