// Package goroutine launches background goroutines with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// SafeGo runs fn in a goroutine. A panic in fn is logged with its stack
// trace instead of crashing the process; nothing is rethrown.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
