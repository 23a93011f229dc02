package model

// Server is a point-in-time snapshot of a hosting server's directory
// state.
type Server struct {
	ID        string
	RoomCount int64
	Rooms     []int64
}
