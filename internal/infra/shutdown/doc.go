// Package shutdown provides graceful shutdown for data-scribbler.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Timeout-bounded cleanup
//   - Named cleanup hooks run in reverse registration order
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("storage", backend.Close)
//	ctx, stop := h.NotifyContext(context.Background())
//	defer stop()
//	<-ctx.Done()
//	err := h.Shutdown()
//
// @design DS-0501
package shutdown
