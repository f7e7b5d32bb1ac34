package controller

// Phase is a step in the lifecycle of a generation.
type Phase uint32

// A generation moves forward through these phases only.
const (
	Parsed Phase = iota
	Installing
	Waiting
	Active
	Superseded
)

func (p Phase) String() string {
	s := "invalid"
	switch p {
	case Parsed:
		s = "parsed"
	case Installing:
		s = "installing"
	case Waiting:
		s = "waiting"
	case Active:
		s = "active"
	case Superseded:
		s = "superseded"
	}
	return s
}
