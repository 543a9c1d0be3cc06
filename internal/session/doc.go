/*
Package session manages interactive shells inside Kubernetes pods.

Each session is keyed by its pod ("namespace/pod") and moves through
starting, running and closed. A session exists in the registry from the
moment Create wins the insert until its exit has been published, so at most
one shell per pod is live at any time.

# Lifecycle

	info, err := manager.Create(ctx, session.CreateRequest{Pod: "web-1", Namespace: "default"})
	manager.Write(id.ForPod("default", "web-1"), []byte("ls\n"))
	manager.Resize(id.ForPod("default", "web-1"), types.Geometry{Cols: 120, Rows: 40})
	manager.Close(id.ForPod("default", "web-1"))

Create captures the active context name and passes it to the exec command,
so a later context switch never redirects a running shell.

Close only kills the process. The exit event that follows is the single
terminal event for the session and carries requested=true. Input and resize
for sessions that are not running are dropped without error.
*/
package session
