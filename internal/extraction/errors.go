package extraction

import "fmt"

type Kind string

const (
	// KindInput means the request itself was unusable; nothing was sent.
	KindInput Kind = "input"
	// KindTransport covers network failures, timeouts and non-2xx answers.
	KindTransport Kind = "transport"
	// KindResponse means the answer was not decodable JSON of the expected shape.
	KindResponse Kind = "response"
	// KindSchema means the answer decoded but violated a field rule.
	KindSchema Kind = "schema"
)

// Error is returned by Extract for every failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
