// Package shaders holds the WGSL kernels recorded by the cookie pipeline and
// compiles them once, at construction, into SPIR-V.
package shaders

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/gogpu/cookie/render"
	"github.com/gogpu/naga"
)

//go:embed blit.wgsl
var blitWGSL string

//go:embed filter.wgsl
var filterWGSL string

//go:embed cube_to_octahedral.wgsl
var cubeToOctahedralWGSL string

// Kernel IDs recorded into render.Recording commands.
const (
	Blit render.KernelID = iota + 1
	FilterHorizontal
	FilterVertical
	CubeToOctahedral
)

// ErrKernelUnavailable is returned for kernels that are unknown or failed to
// compile.
var ErrKernelUnavailable = errors.New("shaders: kernel unavailable")

// Compiler turns WGSL source into a SPIR-V module.
type Compiler func(wgsl string) ([]byte, error)

// DefaultCompiler compiles with naga.
func DefaultCompiler(wgsl string) ([]byte, error) {
	return naga.Compile(wgsl)
}

type kernelInfo struct {
	name       string
	source     *string
	entryPoint string
}

var kernels = map[render.KernelID]kernelInfo{
	Blit:             {"blit", &blitWGSL, "fs_main"},
	FilterHorizontal: {"filter_horizontal", &filterWGSL, "fs_main"},
	FilterVertical:   {"filter_vertical", &filterWGSL, "fs_main"},
	CubeToOctahedral: {"cube_to_octahedral", &cubeToOctahedralWGSL, "cs_main"},
}

// Name returns the kernel name, or "unknown".
func Name(id render.KernelID) string {
	if k, ok := kernels[id]; ok {
		return k.name
	}
	return "unknown"
}

// Source returns the WGSL source of a kernel.
func Source(id render.KernelID) (string, bool) {
	k, ok := kernels[id]
	if !ok {
		return "", false
	}
	return *k.source, true
}

// EntryPoint returns the entry point the kernel runs.
func EntryPoint(id render.KernelID) string {
	return kernels[id].entryPoint
}

type module struct {
	spirv []byte
	err   error
}

// Set is the compiled form of every kernel. A kernel that fails to compile
// does not fail the set: its error is reported by Module so that only the
// passes using it are skipped.
type Set struct {
	modules map[render.KernelID]module
}

// Compile compiles all kernels, sharing modules between kernels with the
// same source. A nil compiler uses DefaultCompiler.
func Compile(compile Compiler) *Set {
	if compile == nil {
		compile = DefaultCompiler
	}

	bySource := make(map[*string]module, len(kernels))
	s := &Set{modules: make(map[render.KernelID]module, len(kernels))}
	for id, k := range kernels {
		m, ok := bySource[k.source]
		if !ok {
			spirv, err := compile(*k.source)
			if err == nil && len(spirv) == 0 {
				err = errors.New("empty module")
			}
			m = module{spirv: spirv, err: err}
			bySource[k.source] = m
		}
		s.modules[id] = m
	}
	return s
}

// Module returns the SPIR-V of a kernel.
func (s *Set) Module(id render.KernelID) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: %s: no kernel set", ErrKernelUnavailable, Name(id))
	}
	m, ok := s.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKernelUnavailable, Name(id))
	}
	if m.err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKernelUnavailable, Name(id), m.err)
	}
	return m.spirv, nil
}

// Available reports whether all the given kernels compiled.
func (s *Set) Available(ids ...render.KernelID) error {
	for _, id := range ids {
		if _, err := s.Module(id); err != nil {
			return err
		}
	}
	return nil
}
