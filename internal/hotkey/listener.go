package hotkey

import "context"

// Listener fires onPress each time the global hotkey goes down.
type Listener interface {
	Start(ctx context.Context, onPress func()) error
	Stop()
	KeyName() string
}
