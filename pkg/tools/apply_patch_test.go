package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyPatchJSONPatchSetsValue(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.json", `{"name":"old","count":1}`)

	tool := NewApplyPatchTool(root)
	input, _ := json.Marshal(applyPatchInput{JSONPatch: []jsonPatchOp{
		{Path: "config.json", Set: "name", Value: "new"},
		{Path: "config.json", Set: "count", Value: 2},
	}})
	result, err := tool.Invoke(context.Background(), Call{ID: "c1", Input: string(input)})
	if err != nil {
		t.Fatal(err)
	}
	if !result.OK {
		t.Fatalf("unexpected failure: %+v", result)
	}

	data, err := os.ReadFile(filepath.Join(root, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "new" || got["count"].(float64) != 2 {
		t.Fatalf("unexpected config: %+v", got)
	}
}

func TestApplyPatchJSONPatchRejectsNonJSONTarget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.json", "not json")

	tool := NewApplyPatchTool(root)
	input, _ := json.Marshal(applyPatchInput{JSONPatch: []jsonPatchOp{{Path: "config.json", Set: "x", Value: 1}}})
	result, err := tool.Invoke(context.Background(), Call{ID: "c1", Input: string(input)})
	if err != nil {
		t.Fatal(err)
	}
	if result.OK {
		t.Fatal("expected failure for non-JSON target")
	}
}

func TestApplyPatchRequiresDiffOrJSONPatch(t *testing.T) {
	tool := NewApplyPatchTool(t.TempDir())
	result, err := tool.Invoke(context.Background(), Call{ID: "c1", Input: "{}"})
	if err != nil {
		t.Fatal(err)
	}
	if result.OK {
		t.Fatal("expected failure when neither diff nor json_patch is given")
	}
}

func TestApplyPatchDefinitionRequiresApproval(t *testing.T) {
	tool := NewApplyPatchTool("/tmp")
	if !tool.Definition().NeedsApproval() {
		t.Fatal("apply_patch must require approval")
	}
}
