// Package ws provides the WebSocket event channel for terminal sessions.
//
// Each connection receives every bus event: terminal output, exits, spawn
// errors and context changes. Output for one session arrives in the order it
// was produced. Commands sent by the client either answer with a result frame
// carrying the request_id, or are fire-and-forget.
//
// Message Types (Client → Server):
//   - list_contexts, switch_context, list_pods, create_session: answered by result
//   - input: Write data to a running session
//   - resize: Change a running session's geometry
//   - close_session: Kill a session; its exit event carries requested=true
//   - ping: Keep-alive, answered by pong
//
// Message Types (Server → Client):
//   - context_list: Sent on connect
//   - error: Sent on connect when the kubeconfig failed to load
//   - data: Terminal output, base64 in the data field
//   - exit, spawn_error: Final event of a session
//   - context_changed: Active context switched
//   - result, pong: Replies to commands
//
// Example Usage:
//
//	handler := ws.NewHandler(appManager, metrics, logger, ws.DefaultConfig())
//	router.GET("/stream", handler.HandleConnection)
package ws
