package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammad-safakhou/agentflow/utils"
)

// FilesystemAdapter serves the filesystem server. All paths are resolved
// under the configured root; traversal outside it is rejected.
type FilesystemAdapter struct {
	root string
}

func NewFilesystemAdapter(root string) (*FilesystemAdapter, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("filesystem: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem: create root: %w", err)
	}
	return &FilesystemAdapter{root: root}, nil
}

func (a *FilesystemAdapter) Invoke(_ context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "read_file":
		path, err := a.resolve(utils.Str(args["path"]))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("filesystem: read: %w", err)
		}
		return map[string]any{"path": utils.Str(args["path"]), "content": string(data)}, nil
	case "write_file":
		path, err := a.resolve(utils.Str(args["path"]))
		if err != nil {
			return nil, err
		}
		content := utils.Str(args["content"])
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("filesystem: mkdir: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("filesystem: write: %w", err)
		}
		return map[string]any{"path": utils.Str(args["path"]), "bytes_written": len(content)}, nil
	case "list_directory":
		path, err := a.resolve(utils.Str(args["path"]))
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("filesystem: list: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return map[string]any{"path": utils.Str(args["path"]), "entries": names}, nil
	default:
		return nil, fmt.Errorf("filesystem: unsupported tool %s", tool)
	}
}

func (a *FilesystemAdapter) resolve(rel string) (string, error) {
	if rel == "" {
		rel = "."
	}
	joined := filepath.Join(a.root, filepath.Clean("/"+rel))
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("filesystem: resolve %s: %w", rel, err)
	}
	rootAbs, err := filepath.Abs(a.root)
	if err != nil {
		return "", err
	}
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(os.PathSeparator)) {
		return "", fmt.Errorf("filesystem: path escapes root: %s", rel)
	}
	return abs, nil
}
