package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/taskbridge/backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic. Используется для
// best-effort работы (уведомления), падение которой не должно ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		logger.WithComponent("goroutine").
			WithField("panic", r).
			Errorf("panic in goroutine\n%s", debug.Stack())
	}
}
