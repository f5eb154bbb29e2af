package field

import "github.com/go-gl/mathgl/mgl32"

// SHEncode16 evaluates the real spherical harmonics up to degree three at a
// unit direction, Condon-Shortley phase included. The 16 coefficients are
// ordered by degree and, within a degree, by ascending m. View-conditioned
// radiance fields consume them as a smooth low-frequency encoding of the ray
// direction.
func SHEncode16(d mgl32.Vec3) [16]float32 {
	x, y, z := d[0], d[1], d[2]
	x2, y2, z2 := x*x, y*y, z*z

	return [16]float32{
		0.28209479,

		-0.48860252 * y,
		0.48860252 * z,
		-0.48860252 * x,

		1.0925484 * x * y,
		-1.0925484 * y * z,
		0.94617470*z2 - 0.31539157,
		-1.0925484 * x * z,
		0.54627424 * (x2 - y2),

		-0.59004360 * y * (3*x2 - y2),
		2.8906114 * x * y * z,
		0.30469720 * y * (1.5 - 7.5*z2),
		0.37317634 * z * (5*z2 - 3),
		0.30469720 * x * (1.5 - 7.5*z2),
		1.4453057 * z * (x2 - y2),
		-0.59004360 * x * (x2 - 3*y2),
	}
}
