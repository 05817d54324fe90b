package lifecycle

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Spawn runs fn on its own goroutine. A panic in fn is logged and swallowed
// so fire-and-forget work can never take the process down.
func Spawn(logger zerolog.Logger, task string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("task", task).
					Str("panic", fmt.Sprint(r)).
					Msg("Background task panicked")
			}
		}()
		fn()
	}()
}
