package target

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckConditions(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing")
	f := NewFS()
	ctx := context.Background()

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"exists holds", Condition{Kind: CondExists, Path: file}, true},
		{"exists fails", Condition{Kind: CondExists, Path: missing}, false},
		{"not_exists holds", Condition{Kind: CondNotExists, Path: missing}, true},
		{"not_exists fails", Condition{Kind: CondNotExists, Path: file}, false},
		{"is_file holds", Condition{Kind: CondIsFile, Path: file}, true},
		{"is_file fails on dir", Condition{Kind: CondIsFile, Path: dir}, false},
		{"is_dir holds", Condition{Kind: CondIsDir, Path: dir}, true},
		{"is_dir fails", Condition{Kind: CondIsDir, Path: file}, false},
		{"parent_exists holds", Condition{Kind: CondParentExists, Path: file}, true},
		{"parent_exists fails", Condition{Kind: CondParentExists, Path: filepath.Join(dir, "no", "deep.txt")}, false},
		{"content sha holds", Condition{Kind: CondContentSHA, Path: file, Value: HashContent([]byte("hi"))}, true},
		{"content sha fails", Condition{Kind: CondContentSHA, Path: file, Value: "beef"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Check(ctx, f, tt.cond)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if res.Holds != tt.want {
				t.Errorf("Holds = %v, want %v (detail: %s)", res.Holds, tt.want, res.Detail)
			}
		})
	}
}

func TestCheckUnknownKind(t *testing.T) {
	f := NewFS()
	if _, err := Check(context.Background(), f, Condition{Kind: "phase", Path: "/tmp"}); err == nil {
		t.Fatal("expected error for unknown condition kind")
	}
}

func TestCheckAllReturnsFirstFailure(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFS()
	conds := []Condition{
		{Kind: CondExists, Path: file},
		{Kind: CondIsDir, Path: file}, // fails
		{Kind: CondNotExists, Path: file},
	}

	failed, err := CheckAll(context.Background(), f, conds)
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if failed == nil {
		t.Fatal("expected a failed condition")
	}
	if failed.Condition.Kind != CondIsDir {
		t.Errorf("first failure = %s, want is_dir", failed.Condition.Kind)
	}
}

func TestCheckAllAllHold(t *testing.T) {
	dir := t.TempDir()
	f := NewFS()
	failed, err := CheckAll(context.Background(), f, []Condition{
		{Kind: CondIsDir, Path: dir},
		{Kind: CondNotExists, Path: filepath.Join(dir, "x")},
	})
	if err != nil || failed != nil {
		t.Fatalf("CheckAll = %v, %v; want nil, nil", failed, err)
	}
}
