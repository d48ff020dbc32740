package bridge

type Operation int

const (
	OperationUnknown Operation = iota
	OperationPlay
	OperationStop
)

const ArgURL = "url"

func ParseOperation(method string) Operation {
	switch method {
	case "play":
		return OperationPlay
	case "stop":
		return OperationStop
	default:
		return OperationUnknown
	}
}

func (o Operation) String() string {
	switch o {
	case OperationPlay:
		return "play"
	case OperationStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Request is one incoming call. Method keeps the raw name so unknown
// operations can still be reported. A url that is absent or not a string
// leaves Source empty.
type Request struct {
	Operation Operation
	Method    string
	Source    string
}

func NewRequest(method string, args map[string]any) Request {
	req := Request{Operation: ParseOperation(method), Method: method}
	if raw, ok := args[ArgURL]; ok {
		if value, ok := raw.(string); ok {
			req.Source = value
		}
	}
	return req
}

func (r Request) Validate() error {
	if r.Operation != OperationPlay {
		return nil
	}
	if r.Source == "" {
		return &ArgumentError{Argument: ArgURL, Message: "url must not be empty"}
	}
	return nil
}
