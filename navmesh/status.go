package navmesh

import "fmt"

// Status is a bitfield returned by every public operation. The high bits
// carry one of Failure/Success/InProgress; the low 24 bits carry a detail
// mask further qualifying the result. Status implements error so it can be
// returned and checked like any other Go error, but callers that want to
// inspect partial results should test the bits directly rather than just
// checking err != nil.
type Status uint32

const (
	Failure    Status = 1 << 31
	Success    Status = 1 << 30
	InProgress Status = 1 << 29

	StatusDetailMask Status = 0x0ffffff

	WrongMagic     Status = 1 << 0
	WrongVersion   Status = 1 << 1
	OutOfMemory    Status = 1 << 2
	InvalidParam   Status = 1 << 3
	BufferTooSmall Status = 1 << 4
	OutOfNodes     Status = 1 << 5
	PartialResult  Status = 1 << 6
)

// Succeeded reports whether s has the Success bit set.
func (s Status) Succeeded() bool { return s&Success != 0 }

// Failed reports whether s has the Failure bit set.
func (s Status) Failed() bool { return s&Failure != 0 }

// InProgress reports whether s has the InProgress bit set.
func (s Status) InProgress() bool { return s&InProgress != 0 }

// Detail reports whether s carries any of the bits of detail, one of the
// WrongMagic/InvalidParam/... constants.
func (s Status) Detail(detail Status) bool { return s&detail != 0 }

func (s Status) Error() string {
	switch {
	case s&WrongMagic != 0:
		return "wrong magic"
	case s&WrongVersion != 0:
		return "wrong version"
	case s&OutOfMemory != 0:
		return "out of memory"
	case s&InvalidParam != 0:
		return "invalid param"
	case s&BufferTooSmall != 0:
		return "buffer too small"
	case s&OutOfNodes != 0:
		return "out of nodes"
	case s&PartialResult != 0:
		return "partial result"
	case s&Failure != 0:
		return "failure"
	default:
		return fmt.Sprintf("status 0x%x", uint32(s))
	}
}

// StatusSucceed reports whether s has the Success bit set.
func StatusSucceed(s Status) bool { return s&Success != 0 }

// StatusFailed reports whether s has the Failure bit set.
func StatusFailed(s Status) bool { return s&Failure != 0 }

// StatusInProgress reports whether s has the InProgress bit set.
func StatusInProgress(s Status) bool { return s&InProgress != 0 }

// StatusDetail reports whether s has the given detail bit set.
func StatusDetail(s Status, detail Status) bool { return s&detail != 0 }
