package chessdto

// MoveRecord is one committed ply.
type MoveRecord struct {
	Notation  string `json:"notation"`
	From      string `json:"from"`
	To        string `json:"to"`
	Captured  string `json:"captured,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

// Event is pushed to watchers over the events socket.
type Event struct {
	Kind    string      `json:"kind"`
	Move    *MoveRecord `json:"move,omitempty"`
	Side    string      `json:"side,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Winner  string      `json:"winner,omitempty"`
	Clock   *ClockState `json:"clock,omitempty"`
	Sound   string      `json:"sound,omitempty"`
	Message string      `json:"message,omitempty"`
}
