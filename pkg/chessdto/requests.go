package chessdto

type SelectRequest struct {
	Square string `json:"square"`
}

type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ThemeRequest struct {
	Name string `json:"name"`
}

type TimeControlRequest = TimeControl

// IntentResponse is returned by every POST intent.
type IntentResponse struct {
	State  *SessionState `json:"state"`
	Events []Event       `json:"events"`
}
