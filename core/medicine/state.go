package medicine

// State mirrors the ledger contract's custody state codes.
type State int

const (
	StateCreated State = iota
	StateShipped
	StateReceived
	StateSold // terminal
)

var stateNames = map[State]string{
	StateCreated:  "Created",
	StateShipped:  "Shipped",
	StateReceived: "Received",
	StateSold:     "Sold",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// CanTransition reports whether moving from s to next is a legal custody
// transition. Only single forward steps are allowed, no skips, no
// reversals, and Sold is terminal.
func (s State) CanTransition(next State) bool {
	if s == StateSold {
		return false
	}
	return next == s+1 && next <= StateSold
}

// StateOf derives the custody state implied by which transaction hashes
// are set on the local record.
func StateOf(m *Medicine) State {
	switch {
	case m.SoldTx != "":
		return StateSold
	case m.ReceiveTx != "":
		return StateReceived
	case m.ShipTx != "":
		return StateShipped
	default:
		return StateCreated
	}
}
