package cookie

import "fmt"

// Stats counts what the manager did during the current frame.
type Stats struct {
	Reservations        int // reservations that reached the atlas
	FailedReservations  int
	Relayouts           int
	CacheHits           int
	Regenerations       int
	MissingReservations int // fetches without a reservation, one per cookie
	ShaderFailures      int
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("reserved=%d failed=%d relayouts=%d hits=%d regenerated=%d missing=%d shader-failures=%d",
		s.Reservations, s.FailedReservations, s.Relayouts, s.CacheHits,
		s.Regenerations, s.MissingReservations, s.ShaderFailures)
}
