package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentd/core/pkg/ids"
)

const defaultMimeType = "application/octet-stream"
const defaultAttachmentExt = ".bin"

// SaveSessionAttachment writes bytes under the session's attachments/
// directory, extending a missing extension with the default, renaming
// with a fresh attachment id on a name collision, and defaulting
// mimeType when empty. ref is a session-relative POSIX path beginning
// with "attachments/" (§4.4, §3 invariant 6).
func (s *Store) SaveSessionAttachment(sessionID, filename, mimeType string, data []byte) (Attachment, error) {
	if _, err := s.sessionEntry(sessionID); err != nil {
		return Attachment{}, err
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = defaultMimeType
	}

	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = ids.New(ids.PrefixAttachment) + defaultAttachmentExt
	}
	if filepath.Ext(name) == "" {
		name += defaultAttachmentExt
	}

	dir := filepath.Join(s.sessionDir(sessionID), "attachments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Attachment{}, fmt.Errorf("store: mkdir attachments: %w", err)
	}

	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		name = ids.New(ids.PrefixAttachment) + ext
		target = filepath.Join(dir, name)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return Attachment{}, fmt.Errorf("store: write attachment: %w", err)
	}

	return Attachment{
		Ref:      "attachments/" + filepath.ToSlash(name),
		MimeType: mimeType,
	}, nil
}
