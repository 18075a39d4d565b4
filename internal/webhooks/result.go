package webhooks

// Result is the acknowledgement body returned for every verified delivery.
// Handled is false when the event was ignored; Reason says why.
type Result struct {
	Received bool   `json:"received"`
	Handled  bool   `json:"handled"`
	Reason   string `json:"reason,omitempty"`
}

const (
	ReasonDuplicate    = "duplicate delivery"
	ReasonUnsupported  = "unsupported event type"
	ReasonUserNotFound = "no matching user"
	ReasonStale        = "newer billing state already applied"
	ReasonNoCustomer   = "event carries no customer reference"
)

func Handled() Result {
	return Result{Received: true, Handled: true}
}

func Ignored(reason string) Result {
	return Result{Received: true, Handled: false, Reason: reason}
}
