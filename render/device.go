// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Device errors.
var (
	// ErrMemoryBudgetExceeded is returned when an allocation would exceed
	// the device memory budget.
	ErrMemoryBudgetExceeded = errors.New("render: memory budget exceeded")

	// ErrDeviceClosed is returned when allocating on a closed device.
	ErrDeviceClosed = errors.New("render: device closed")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default texture memory budget (256 MB).
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the minimum allowed memory budget (4 MB).
	MinMemoryMB = 4
)

// DeviceHandle provides GPU device access from the host application.
//
// The cookie subsystem RECEIVES the device from the host, it does not create
// one. Work is recorded into a Recording that the host submits; the handle is
// only used to wait for the GPU before resources are destroyed.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle without a GPU behind it.
// Used for headless recording and tests.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports an unknown adapter for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

var _ DeviceHandle = NullDeviceHandle{}

// MemoryStats contains texture memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the currently allocated memory in bytes.
	UsedBytes uint64

	// TextureCount is the number of live textures.
	TextureCount int

	// Created is the total number of textures allocated.
	Created uint64

	// Destroyed is the total number of textures destroyed.
	Destroyed uint64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%d/%d MB, %d textures, %d created, %d destroyed]",
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.TextureCount,
		s.Created,
		s.Destroyed)
}

// DeviceConfig holds configuration for creating a Device.
type DeviceConfig struct {
	// MaxMemoryMB is the texture memory budget in megabytes.
	// Defaults to DefaultMaxMemoryMB if <= 0, raised to MinMemoryMB.
	MaxMemoryMB int
}

// Device allocates GPU textures against a memory budget and tracks every
// live allocation so that teardown can release them unconditionally.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	handle DeviceHandle

	budgetBytes uint64
	usedBytes   uint64
	live        map[TextureID]*Texture

	created   uint64
	destroyed uint64

	closed bool
}

// NewDevice creates a Device. A nil handle is replaced by NullDeviceHandle.
func NewDevice(handle DeviceHandle, config DeviceConfig) *Device {
	if handle == nil {
		handle = NullDeviceHandle{}
	}
	maxMB := config.MaxMemoryMB
	if maxMB <= 0 {
		maxMB = DefaultMaxMemoryMB
	}
	if maxMB < MinMemoryMB {
		maxMB = MinMemoryMB
	}

	//nolint:gosec // G115: maxMB is bounded by MinMemoryMB minimum
	return &Device{
		handle:      handle,
		budgetBytes: uint64(maxMB) * 1024 * 1024,
		live:        make(map[TextureID]*Texture),
	}
}

// Handle returns the host device handle.
func (d *Device) Handle() DeviceHandle {
	return d.handle
}

// BudgetBytes returns the memory budget in bytes.
func (d *Device) BudgetBytes() uint64 {
	return d.budgetBytes
}

// CreateTexture allocates a texture. It fails with ErrMemoryBudgetExceeded
// when the allocation does not fit the remaining budget.
func (d *Device) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	desc, err := desc.normalize()
	if err != nil {
		return nil, err
	}
	tex := newTexture(desc, d)
	size := tex.SizeBytes()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	if d.usedBytes+size > d.budgetBytes {
		return nil, fmt.Errorf("%w: %q needs %d bytes, %d of %d in use",
			ErrMemoryBudgetExceeded, desc.Label, size, d.usedBytes, d.budgetBytes)
	}

	d.live[tex.id] = tex
	d.usedBytes += size
	d.created++
	return tex, nil
}

// Destroy releases a texture immediately. Destroying a texture twice, or a
// texture the device does not own, is a no-op.
//
// Destroy must only be called once the GPU no longer references the
// texture; recorded work should hand textures to a DeletionQueue instead.
func (d *Device) Destroy(tex *Texture) {
	if tex == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.live[tex.id]; !ok {
		return
	}
	d.destroyLocked(tex)
}

func (d *Device) destroyLocked(tex *Texture) {
	delete(d.live, tex.id)
	d.usedBytes -= tex.SizeBytes()
	d.destroyed++
	tex.released.Store(true)
}

// Poller is implemented by host devices that can be polled for completed
// work. gpucontext.Device is a type token, so the concrete device is asserted
// against it.
type Poller interface {
	Poll(wait bool)
}

// Poll lets the host device make progress on submitted work. With wait set
// it blocks until the GPU is idle. It is a no-op without a GPU or when the
// host device does not implement Poller.
func (d *Device) Poll(wait bool) {
	if p, ok := d.handle.Device().(Poller); ok {
		p.Poll(wait)
	}
}

// Owns reports whether tex is a live texture allocated by this device.
func (d *Device) Owns(tex *Texture) bool {
	if tex == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.live[tex.id]
	return ok
}

// Stats returns current memory usage statistics.
func (d *Device) Stats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return MemoryStats{
		TotalBytes:   d.budgetBytes,
		UsedBytes:    d.usedBytes,
		TextureCount: len(d.live),
		Created:      d.created,
		Destroyed:    d.destroyed,
	}
}

// Close waits for the GPU and destroys every live texture.
// The device must not be used for allocation afterwards.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.Poll(true)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tex := range d.live {
		d.destroyLocked(tex)
	}
}
