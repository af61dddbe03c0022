package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/agentd/core/pkg/workspace"
)

// ApplyPatchTool applies a unified diff via `git apply`, or, when the
// input carries a json_patch list, performs targeted path-set edits via
// gjson/sjson instead of a full-file diff. The json_patch target must
// contain valid JSON; a YAML file is rejected.
type ApplyPatchTool struct {
	Root string
}

func NewApplyPatchTool(root string) *ApplyPatchTool { return &ApplyPatchTool{Root: root} }

func (t *ApplyPatchTool) Definition() Definition {
	return Definition{
		Name:        "apply_patch",
		Description: "Applies a unified diff, or a list of JSON path-set operations against a config file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"diff": map[string]any{"type": "string"},
				"json_patch": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"path":  map[string]any{"type": "string"},
							"set":   map[string]any{"type": "string"},
							"value": map[string]any{},
						},
					},
				},
			},
		},
		Kind:             KindWrite,
		RequiresApproval: true,
	}
}

type jsonPatchOp struct {
	Path  string `json:"path"`
	Set   string `json:"set"`
	Value any    `json:"value"`
}

type applyPatchInput struct {
	Diff      string        `json:"diff"`
	JSONPatch []jsonPatchOp `json:"json_patch"`
}

func (t *ApplyPatchTool) Invoke(ctx context.Context, call Call) (Result, error) {
	var in applyPatchInput
	if err := DecodeInput(call, &in); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}

	if len(in.JSONPatch) > 0 {
		return t.applyJSONPatch(call, in.JSONPatch)
	}
	if strings.TrimSpace(in.Diff) == "" {
		return ErrorResult(call.ID, "diff or json_patch is required"), nil
	}
	return t.applyUnifiedDiff(ctx, call, in.Diff)
}

func (t *ApplyPatchTool) applyUnifiedDiff(ctx context.Context, call Call, diff string) (Result, error) {
	tmp, err := os.CreateTemp("", "patch-*.diff")
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(diff); err != nil {
		tmp.Close()
		return ErrorResult(call.ID, err.Error()), nil
	}
	tmp.Close()

	result, err := workspace.RunCommand(ctx, fmt.Sprintf("git apply --whitespace=nowarn %q", tmp.Name()), workspace.CommandOptions{
		Dir:       t.Root,
		TimeoutMs: 30_000,
	})
	if err != nil {
		if cmdErr, ok := err.(*workspace.CommandError); ok {
			return Result{
				ID:    call.ID,
				OK:    false,
				Error: "patch failed to apply",
				Parts: []Part{{Type: PartText, Text: cmdErr.Result.Stdout + cmdErr.Result.Stderr}},
			}, nil
		}
		return ErrorResult(call.ID, err.Error()), nil
	}
	return TextResult(call.ID, result.Stdout), nil
}

func (t *ApplyPatchTool) applyJSONPatch(call Call, ops []jsonPatchOp) (Result, error) {
	if len(ops) == 0 {
		return ErrorResult(call.ID, "json_patch is empty"), nil
	}
	target := ops[0].Path
	abs, err := workspace.SafeJoin(t.Root, target)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	if !gjson.ValidBytes(data) {
		return ErrorResult(call.ID, "target is not valid JSON"), nil
	}

	doc := string(data)
	for _, op := range ops {
		if op.Path != target {
			return ErrorResult(call.ID, "all json_patch operations must target the same file"), nil
		}
		doc, err = sjson.Set(doc, op.Set, op.Value)
		if err != nil {
			return ErrorResult(call.ID, fmt.Sprintf("set %q: %v", op.Set, err)), nil
		}
	}

	if err := os.WriteFile(abs, []byte(doc), 0o644); err != nil {
		return ErrorResult(call.ID, err.Error()), nil
	}
	return TextResult(call.ID, fmt.Sprintf("applied %d json patch operation(s) to %s", len(ops), target)), nil
}
