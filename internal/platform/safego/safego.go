// Package safego launches fire-and-forget goroutines that cannot crash the process.
package safego

import (
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Go runs fn in a new goroutine, recovering and logging any panic.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered panic in background goroutine")
			}
		}()
		fn()
	}()
}
