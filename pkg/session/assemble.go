package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/agentd/core/pkg/ctxgather"
	"github.com/agentd/core/pkg/kit"
	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/workspace"
)

// assembleMessages builds the ordered message list the model sees
// (§4.7.2), then applies provider normalization (§4.7.3).
func (e *Engine) assembleMessages(sess store.Session, snapshot ctxgather.Snapshot, providerKind kit.Kind) ([]kit.Message, error) {
	var out []kit.Message

	if sess.SystemPrompt != "" {
		out = append(out, systemMessage(sess.SystemPrompt))
	}
	if sess.Mode == store.ModeSpec {
		out = append(out, systemMessage(specModeInstructions(sess.SpecPath)))
	}
	out = append(out, systemMessage(snapshot.Render()))
	if sess.Mode == store.ModeSpec {
		content, err := readSpecIfPresent(sess.WorkspacePath, sess.SpecPath)
		if err == nil && strings.TrimSpace(content) != "" {
			out = append(out, systemMessage(fmt.Sprintf("CURRENT SPEC (%s):\n%s", sess.SpecPath, content)))
		}
	}

	for _, m := range sess.Messages {
		out = append(out, e.convertMessage(sess.ID, m))
	}

	return normalizeForProvider(out, providerKind), nil
}

func systemMessage(text string) kit.Message {
	return kit.Message{Role: "system", Parts: []kit.Part{{Type: kit.PartText, Text: text}}}
}

func (e *Engine) convertMessage(sessionID string, m store.Message) kit.Message {
	parts := make([]kit.Part, 0, len(m.Parts))
	for _, p := range m.Parts {
		parts = append(parts, e.convertPart(sessionID, p))
	}
	return kit.Message{Role: string(m.Role), Parts: parts, ToolCallID: m.ToolCallID}
}

func (e *Engine) convertPart(sessionID string, p store.Part) kit.Part {
	switch p.Type {
	case store.PartText:
		return kit.Part{Type: kit.PartText, Text: p.Text}
	case store.PartImage, store.PartFile:
		data, err := e.readAttachment(sessionID, p.Ref)
		if err != nil {
			return kit.Part{Type: kit.PartText, Text: fmt.Sprintf("[image: %s]", p.Ref)}
		}
		kind := kit.PartImage
		if p.Type == store.PartFile {
			kind = kit.PartFile
		}
		return kit.Part{Type: kind, Data: data, MediaType: p.MimeType, Ref: p.Ref}
	default:
		return kit.Part{Type: kit.PartText, Text: p.Text}
	}
}

// readAttachment reads an attachment ref (e.g. "attachments/x.png")
// through a workspace-safe join rooted at the session's own storage
// directory, not the target workspace.
func (e *Engine) readAttachment(sessionID, ref string) ([]byte, error) {
	abs, err := workspace.SafeJoin(e.Store.SessionDir(sessionID), ref)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// normalizeForProvider rewrites tool-role messages into assistant text
// for providers that cannot consume tool-role history (§4.7.3).
func normalizeForProvider(msgs []kit.Message, providerKind kit.Kind) []kit.Message {
	if providerKind != kit.KindNoToolRole {
		return msgs
	}
	out := make([]kit.Message, len(msgs))
	for i, m := range msgs {
		if m.Role != "tool" {
			out[i] = m
			continue
		}
		out[i] = kit.Message{Role: "assistant", Parts: []kit.Part{{Type: kit.PartText, Text: formatToolOutput(m)}}}
	}
	return out
}

func formatToolOutput(m kit.Message) string {
	var texts []string
	for _, p := range m.Parts {
		if p.Type == kit.PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	joined := strings.Join(texts, "\n")
	if joined == "" {
		joined = "(no output)"
	}
	return fmt.Sprintf("TOOL OUTPUT (%s):\n%s", m.ToolCallID, joined)
}

func readSpecIfPresent(root, specPath string) (string, error) {
	abs, err := workspace.SafeJoin(root, specPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func specModeInstructions(specPath string) string {
	return fmt.Sprintf(
		"This session is spec-driven. Treat the spec file at %s as the primary source of truth. "+
			"Use write_spec to edit it and validate_spec to check it. It must contain a heading starting "+
			"with \"Goal\", a heading containing \"Constraints\", and a heading containing \"Acceptance\".",
		specPath,
	)
}
