// Package shutdown coordinates graceful termination.
//
// A Handler turns SIGINT/SIGTERM into context cancellation and runs
// registered cleanup hooks, newest first, under a timeout:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	ctx, stop := h.Context(context.Background())
//	defer stop()
//	h.OnShutdown(server.Shutdown)
//	run(ctx)
//	err := h.Shutdown()
package shutdown
