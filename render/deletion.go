package render

// DefaultFramesInFlight is the number of frames the GPU may lag behind the
// recording thread.
const DefaultFramesInFlight = 2

type pendingRelease struct {
	tex   *Texture
	frame uint64
}

// DeletionQueue defers the destruction of textures that recorded work still
// references. A texture handed to Defer during frame N is destroyed by the
// first Advance that reaches frame N+framesInFlight, when the GPU has
// consumed the commands of frame N.
//
// DeletionQueue is not safe for concurrent use; it belongs to the recording
// thread.
type DeletionQueue struct {
	device         *Device
	framesInFlight uint64
	frame          uint64
	pending        []pendingRelease
}

// NewDeletionQueue creates a queue destroying textures on device.
// framesInFlight defaults to DefaultFramesInFlight if <= 0.
func NewDeletionQueue(device *Device, framesInFlight int) *DeletionQueue {
	if framesInFlight <= 0 {
		framesInFlight = DefaultFramesInFlight
	}
	return &DeletionQueue{
		device: device,
		//nolint:gosec // G115: framesInFlight is positive
		framesInFlight: uint64(framesInFlight),
	}
}

// Defer schedules tex for destruction. Nil and already destroyed textures
// are ignored.
func (q *DeletionQueue) Defer(tex *Texture) {
	if tex == nil || tex.IsReleased() {
		return
	}
	q.pending = append(q.pending, pendingRelease{tex: tex, frame: q.frame})
}

// Advance moves to the next frame and destroys every texture whose frame is
// at least framesInFlight frames old. It returns the number destroyed.
func (q *DeletionQueue) Advance() int {
	q.frame++
	if len(q.pending) == 0 {
		return 0
	}
	q.device.Poll(false)

	n := 0
	kept := q.pending[:0]
	for _, p := range q.pending {
		if q.frame-p.frame >= q.framesInFlight {
			q.destroy(p.tex)
			n++
			continue
		}
		kept = append(kept, p)
	}
	clear(q.pending[len(kept):])
	q.pending = kept
	return n
}

// Flush waits for the GPU to go idle and destroys everything pending.
func (q *DeletionQueue) Flush() int {
	if len(q.pending) == 0 {
		return 0
	}
	q.device.Poll(true)

	n := len(q.pending)
	for _, p := range q.pending {
		q.destroy(p.tex)
	}
	clear(q.pending)
	q.pending = q.pending[:0]
	return n
}

func (q *DeletionQueue) destroy(tex *Texture) {
	if tex.device != nil {
		tex.device.Destroy(tex)
		return
	}
	tex.Release()
}

// Len returns the number of textures waiting for destruction.
func (q *DeletionQueue) Len() int {
	return len(q.pending)
}

// Frame returns the current frame index.
func (q *DeletionQueue) Frame() uint64 {
	return q.frame
}
