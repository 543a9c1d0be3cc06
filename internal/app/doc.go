// Package app ties the cluster context provider, the session manager and the
// event bus together behind one surface shared by the HTTP and WebSocket
// transports.
//
// Key Components:
//   - Manager: context listing and switching, pod listing, session access
//   - Greeting: the events a newly connected consumer receives first
//
// Example Usage:
//
//	manager := app.NewManager(app.Options{
//		Clusters: clusters,
//		Sessions: sessions,
//		Bus:      bus,
//		Logger:   logger,
//	})
//	if err := manager.SelectInitial(); err != nil {
//		logger.Warn("no initial context", zap.Error(err))
//	}
//	pods, err := manager.ListPods(ctx, "default")
package app
