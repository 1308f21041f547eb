// Package filter builds the blurred mip chain of area-light cookies.
//
// Filtering runs on the GPU as a series of recorded passes over two
// atlas-sized scratch surfaces:
//   - Mip 0: the source is blitted into scratch A at its native size
//   - Each further level: a horizontal Gaussian pass from A into B halves
//     the width, a vertical pass from B into the next mip of A halves the
//     height
//
// The resulting chain approximates a convolution whose radius doubles
// with every level, which is what a rough area light needs.
package filter
