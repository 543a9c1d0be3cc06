// Package terminal runs interactive subprocesses behind pseudo-terminals.
//
// A Spawner starts one command attached to a freshly allocated PTY and returns a
// Process handle. Output and exit are delivered through the callbacks supplied at
// spawn time, so no output can be produced before a consumer is attached.
//
// Guarantees:
//   - Spawn failures (command not found, PTY allocation refused) are returned
//     synchronously, never as a later exit.
//   - OnData receives chunks in the order the subprocess wrote them. Chunk
//     boundaries carry no meaning.
//   - OnExit fires exactly once per process, after the last OnData call, after
//     the PTY master is closed and the child is reaped.
//   - Write, Resize and Kill never block the caller. Writes are queued and
//     flushed by a per-process writer goroutine.
//
// Example Usage:
//
//	proc, err := terminal.NewPTYSpawner(logger).Spawn(terminal.SpawnOptions{
//		Command:  "kubectl",
//		Args:     []string{"exec", "-it", "pod-a", "-n=default", "--context", "kind", "--", "/bin/sh"},
//		Geometry: types.Geometry{Cols: 80, Rows: 30},
//		OnData:   func(b []byte) { os.Stdout.Write(b) },
//		OnExit:   func(s terminal.ExitStatus) { log.Printf("exited: %d", s.Code) },
//	})
//	proc.Write([]byte("ls\n"))
//	proc.Resize(types.Geometry{Cols: 120, Rows: 40})
//	proc.Kill()
package terminal
