package math

import (
	m "math"
)

const (
	K_PI float32 = 3.14159265358979323846
	// Degrees to radians.
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
)

func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

func sincos(radians float32) (float32, float32) {
	s, c := m.Sincos(float64(radians))
	return float32(s), float32(c)
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec3One() Vec3 {
	return Vec3{X: 1, Y: 1, Z: 1}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

/**
 * @brief Reports whether every component of v is within tolerance of the
 * matching component of other.
 */
func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	for _, d := range [3]float32{v.X - other.X, v.Y - other.Y, v.Z - other.Z} {
		if float32(m.Abs(float64(d))) > tolerance {
			return false
		}
	}
	return true
}

/**
 * @brief Transforms the point v by mt, as a row vector with w = 1.
 */
func (v Vec3) Transform(mt Mat4) Vec3 {
	d := &mt.Data
	return Vec3{
		X: v.X*d[0] + v.Y*d[4] + v.Z*d[8] + d[12],
		Y: v.X*d[1] + v.Y*d[5] + v.Z*d[9] + d[13],
		Z: v.X*d[2] + v.Y*d[6] + v.Z*d[10] + d[14],
	}
}

func NewMat4Identity() Mat4 {
	return Mat4{Data: [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

/**
 * @brief Returns mt * other. With row vectors, mt is applied first.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12], out.Data[13], out.Data[14] = position.X, position.Y, position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0], out.Data[5], out.Data[10] = scale.X, scale.Y, scale.Z
	return out
}

// newMat4Rotation rotates about a single axis; a and b are the data indices
// of the two axes that turn into each other.
func newMat4Rotation(radians float32, a, b int) Mat4 {
	out := NewMat4Identity()
	s, c := sincos(radians)
	out.Data[a*4+a] = c
	out.Data[a*4+b] = s
	out.Data[b*4+a] = -s
	out.Data[b*4+b] = c
	return out
}

/**
 * @brief Creates a rotation matrix applying x, then y, then z.
 */
func NewMat4EulerXYZ(xRadians, yRadians, zRadians float32) Mat4 {
	rx := newMat4Rotation(xRadians, 1, 2)
	ry := newMat4Rotation(yRadians, 2, 0)
	rz := newMat4Rotation(zRadians, 0, 1)
	return rx.Mul(ry).Mul(rz)
}
