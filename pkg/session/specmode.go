package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/workspace"
)

const specTemplate = `# Goal

Describe the goal of this session.

# Constraints

List any constraints the implementation must respect.

# Acceptance

List the criteria that must hold for this work to be accepted.
`

// ensureSpecMode implements §4.7.7: a spec-mode session gets a default
// spec_path if it has none, and the file is created from a template if
// it doesn't already exist.
func (e *Engine) ensureSpecMode(sessionID, turnID string, sess *store.Session) error {
	if sess.SpecPath == "" {
		specPath := fmt.Sprintf("specs/session-%s/spec.md", sessionID)
		updated, err := e.Store.UpdateSession(sessionID, func(s *store.Session) { s.SpecPath = specPath })
		if err != nil {
			return err
		}
		*sess = updated
		_ = e.Store.AppendEvent(sessionID, store.Event{
			Type: store.EventSpecPathSet, TurnID: turnID,
			Data: map[string]any{"spec_path": specPath},
		})
	}

	abs, err := workspace.SafeJoin(sess.WorkspacePath, sess.SpecPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(abs, []byte(specTemplate), 0o644); err != nil {
		return err
	}
	_ = e.Store.AppendEvent(sessionID, store.Event{
		Type: store.EventSpecCreated, TurnID: turnID,
		Data: map[string]any{"spec_path": sess.SpecPath},
	})
	return nil
}
