// Package process runs the external editor.
//
// A Process wraps an exec.Cmd with lifecycle state and exit tracking. The
// EditorLauncher builds one from $EDITOR, runs it in the foreground and
// blocks until it exits:
//
//	l := process.NewEditorLauncher("vim -u NONE", logger)
//	code, err := l.Launch(ctx, "/tmp/econfctl-1234.edit.conf")
//	if errors.Is(err, process.ErrEditorStart) {
//	    // the editor never ran
//	}
//
// A non-zero exit code is returned without an error; callers decide whether
// that matters.
//
// While the editor runs, SIGINT and SIGQUIT are caught and discarded by the
// parent so a Ctrl-C aimed at the editor cannot skip cleanup. The editor
// itself receives them with default dispositions. Cancelling the context
// stops the editor with SIGTERM, escalating to SIGKILL after KillDelay.
package process
