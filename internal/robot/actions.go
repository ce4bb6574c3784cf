package robot

// Upstream command names sent as "cmd".
const (
	CmdClean        = "Clean"
	CmdCharge       = "Charge"
	CmdGetWorkState = "GetWorkState"
)

// CleanAction is the "act" code for the Clean command.
type CleanAction string

// Cleaning action codes.
const (
	CleanStart  CleanAction = "s"
	CleanResume CleanAction = "r"
	CleanPause  CleanAction = "p"
	CleanStop   CleanAction = "h"
)

// CleanActions lists every valid cleaning action in display order.
var CleanActions = []CleanAction{CleanStart, CleanResume, CleanPause, CleanStop}

// Valid reports whether a is a known cleaning action.
func (a CleanAction) Valid() bool {
	for _, known := range CleanActions {
		if a == known {
			return true
		}
	}
	return false
}

// String returns the wire code.
func (a CleanAction) String() string { return string(a) }

// ChargeAction is the "act" code for the Charge command.
type ChargeAction string

// Charging action codes.
const (
	ChargeGoStart ChargeAction = "go-start"
	ChargeStopGo  ChargeAction = "stopGo"
)

// ChargeActions lists every valid charging action in display order.
var ChargeActions = []ChargeAction{ChargeGoStart, ChargeStopGo}

// Valid reports whether a is a known charging action.
func (a ChargeAction) Valid() bool {
	for _, known := range ChargeActions {
		if a == known {
			return true
		}
	}
	return false
}

// String returns the wire code.
func (a ChargeAction) String() string { return string(a) }
