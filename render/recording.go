package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// KernelID names a GPU kernel (raster or compute). The set of kernels and
// their sources live with the code that records them.
type KernelID int

// ArithmeticOp is a per-texel operation between two textures.
type ArithmeticOp int

const (
	// ArithmeticAdd computes target += source.
	ArithmeticAdd ArithmeticOp = iota + 1

	// ArithmeticMultiply computes target *= source.
	ArithmeticMultiply
)

// String returns the operation name.
func (op ArithmeticOp) String() string {
	switch op {
	case ArithmeticAdd:
		return "add"
	case ArithmeticMultiply:
		return "multiply"
	default:
		return fmt.Sprintf("ArithmeticOp(%d)", op)
	}
}

// Viewport is a pixel rectangle inside a mip level.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// String returns the viewport as "x,y wxh".
func (v Viewport) String() string {
	return fmt.Sprintf("%d,%d %dx%d", v.X, v.Y, v.Width, v.Height)
}

// Recording is an ordered list of GPU commands. Nothing is executed while
// recording; the host engine replays the commands later, in order, so every
// command may read what the previous ones wrote.
type Recording struct {
	Commands []Command
}

// NewRecording returns an empty recording.
func NewRecording() *Recording {
	return &Recording{}
}

func (rec *Recording) push(cmd Command) {
	rec.Commands = append(rec.Commands, cmd)
}

// Blit copies SourceMip of src, restricted to srcScaleBias, into the
// dstScaleBias region of dstMip of dst, resampling as needed. Scale/bias
// vectors are (scaleX, scaleY, biasX, biasY) in UV space.
func (rec *Recording) Blit(src *Texture, srcMip int, srcScaleBias mgl32.Vec4, dst *Texture, dstMip int, dstScaleBias mgl32.Vec4) {
	rec.push(&Blit{
		Source:          src,
		SourceMip:       srcMip,
		SourceScaleBias: srcScaleBias,
		Target:          dst,
		TargetMip:       dstMip,
		TargetScaleBias: dstScaleBias,
	})
}

// BlitOctahedral is Blit for octahedral-mapped content: border texels are
// mirrored across the octahedron edges instead of clamped.
func (rec *Recording) BlitOctahedral(src *Texture, srcMip int, srcScaleBias mgl32.Vec4, dst *Texture, dstMip int, dstScaleBias mgl32.Vec4) {
	rec.push(&Blit{
		Source:          src,
		SourceMip:       srcMip,
		SourceScaleBias: srcScaleBias,
		Target:          dst,
		TargetMip:       dstMip,
		TargetScaleBias: dstScaleBias,
		Octahedral:      true,
	})
}

// Draw records a full-screen raster pass of kernel reading one mip of src
// and writing viewport of one mip of dst.
func (rec *Recording) Draw(kernel KernelID, src *Texture, srcMip int, dst *Texture, dstMip int, viewport Viewport, params []byte) {
	rec.push(&Draw{
		Kernel:    kernel,
		Source:    src,
		SourceMip: srcMip,
		Target:    dst,
		TargetMip: dstMip,
		Viewport:  viewport,
		Params:    params,
	})
}

// Dispatch records a compute dispatch of kernel over groups workgroups.
func (rec *Recording) Dispatch(kernel KernelID, groups [3]uint32, sources []*Texture, dst *Texture, params []byte) {
	rec.push(&Dispatch{
		Kernel:  kernel,
		Groups:  groups,
		Sources: sources,
		Target:  dst,
		Params:  params,
	})
}

// Arithmetic records dst = dst op src over the whole of mip 0 of dst.
func (rec *Recording) Arithmetic(op ArithmeticOp, src, dst *Texture) {
	rec.push(&Arithmetic{Op: op, Source: src, Target: dst})
}

// Clear records filling every mip of dst with color.
func (rec *Recording) Clear(dst *Texture, color mgl32.Vec4) {
	rec.push(&Clear{Target: dst, Color: color})
}

// Len returns the number of recorded commands.
func (rec *Recording) Len() int {
	return len(rec.Commands)
}

// Reset drops all recorded commands, keeping the backing storage.
func (rec *Recording) Reset() {
	clear(rec.Commands)
	rec.Commands = rec.Commands[:0]
}

// Command is one recorded GPU operation.
type Command interface {
	isCommand()
}

func (*Blit) isCommand()       {}
func (*Draw) isCommand()       {}
func (*Dispatch) isCommand()   {}
func (*Arithmetic) isCommand() {}
func (*Clear) isCommand()      {}

// Blit copies the SourceScaleBias region of a source mip into the
// TargetScaleBias region of a target mip. Octahedral blits mirror border
// texels across the octahedron edges.
type Blit struct {
	Source          *Texture
	SourceMip       int
	SourceScaleBias mgl32.Vec4
	Target          *Texture
	TargetMip       int
	TargetScaleBias mgl32.Vec4
	Octahedral      bool
}

// Draw runs a fragment kernel reading a source mip and writing Viewport of
// a target mip. Params holds the kernel uniform block.
type Draw struct {
	Kernel    KernelID
	Source    *Texture
	SourceMip int
	Target    *Texture
	TargetMip int
	Viewport  Viewport
	Params    []byte
}

// Dispatch runs a compute kernel over Groups workgroups.
type Dispatch struct {
	Kernel  KernelID
	Groups  [3]uint32
	Sources []*Texture
	Target  *Texture
	Params  []byte
}

// Arithmetic combines Source into Target in place with Op.
type Arithmetic struct {
	Op     ArithmeticOp
	Source *Texture
	Target *Texture
}

// Clear fills Target with Color.
type Clear struct {
	Target *Texture
	Color  mgl32.Vec4
}
