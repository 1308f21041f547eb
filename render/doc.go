// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides the GPU resource model used by the cookie atlas.
//
// The cookie subsystem never talks to a GPU API directly. It allocates
// textures through a Device, records work into a Recording and hands
// textures that recorded work still references to a DeletionQueue. The host
// engine replays recordings on its own device.
//
// # Key Principle
//
// The subsystem RECEIVES a GPU device from the host application (a
// gpucontext.DeviceProvider), it does NOT create its own. The device is only
// polled, so that destruction happens after the GPU has consumed the
// commands referencing a texture.
//
// # Core Types
//
//   - Texture: handle with size, mip count, format preset and content version
//   - Device: budgeted allocation and live-texture tracking
//   - DeletionQueue: frame-delayed destruction of transient textures
//   - Recording: ordered Blit, Draw, Dispatch, Arithmetic and Clear commands
//
// # Formats
//
// Two presets trade precision for memory: FormatR8G8B8A8
// (gputypes.TextureFormatRGBA8Unorm) and FormatR16G16B16A16
// (gputypes.TextureFormatRGBA16Float).
package render
