package reservation

// requestMsg is the REQUEST message forwarded hop-by-hop from initiator to
// responder, accumulating a QCap per hop (spec §4.7 Phase 1).
type requestMsg struct {
	Reservation *Reservation
	QCaps       []QCap
}

func (requestMsg) MessageType() string { return "reservation.request" }

// approveMsg propagates the admitted path back from the responder to the
// initiator, installing rules at every node along the way (spec §4.7 Phase 2).
type approveMsg struct {
	Reservation *Reservation
	Path        []string
}

func (approveMsg) MessageType() string { return "reservation.approve" }

// rejectMsg unwinds a reservation from every card it touched, propagating
// back toward the initiator (spec §4.7 Phase 3).
type rejectMsg struct {
	Reservation *Reservation
}

func (rejectMsg) MessageType() string { return "reservation.reject" }
