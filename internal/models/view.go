package models

// TwinView is the read-only projection handed to presentation layers.
type TwinView struct {
	Twin    Twin
	Health  Health
	Latest  *Snapshot
	Recent  []Snapshot
	Failure *FailureState
}
