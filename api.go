package mandel

// Renderer produces the complete row-major iteration buffer for a geometry.
// Implementations never return a partially filled buffer.
type Renderer interface {
	Render(g Geometry) ([]int, error)
}
