package session

// Notifier delivers fire-and-forget notices to the user
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) {
	f(message)
}

// MultiNotifier fans a notice out to several notifiers
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(message string) {
	for _, n := range m {
		n.Notify(message)
	}
}
