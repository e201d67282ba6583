package board

// Notifier surfaces user-visible outcomes (toasts in the TUI, lines on the CLI).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// NotifierFuncs adapts two funcs to a Notifier. Nil funcs are ignored.
type NotifierFuncs struct {
	OnSuccess func(msg string)
	OnError   func(msg string)
}

func (n NotifierFuncs) Success(msg string) {
	if n.OnSuccess != nil {
		n.OnSuccess(msg)
	}
}

func (n NotifierFuncs) Error(msg string) {
	if n.OnError != nil {
		n.OnError(msg)
	}
}
