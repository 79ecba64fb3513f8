package tool

import (
	"fmt"
	"path/filepath"
)

// FileBox is the default Box implementation: it scans one or more tool
// directories for "*.yaml" and "*/*.yaml" descriptors, matching tool_io.py's
// ToolBox.__init__ glob pattern (tool_dir/*.xml and tool_dir/*/*.xml).
type FileBox struct {
	tools map[string]Tool
}

// NewFileBox scans dirs and loads every descriptor it finds. A later
// directory's tool with a colliding id overrides an earlier one, mirroring
// the reference scanner's plain dict assignment.
func NewFileBox(dirs ...string) (*FileBox, error) {
	box := &FileBox{tools: make(map[string]Tool)}
	for _, dir := range dirs {
		patterns := []string{
			filepath.Join(dir, "*.yaml"),
			filepath.Join(dir, "*", "*.yaml"),
		}
		for _, pattern := range patterns {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("tool: scan %s: %w", pattern, err)
			}
			for _, m := range matches {
				t, err := Load(m)
				if err != nil {
					return nil, err
				}
				box.tools[t.ToolID()] = t
			}
		}
	}
	return box, nil
}

// Lookup implements Box.
func (b *FileBox) Lookup(id string) (Tool, bool) {
	t, ok := b.tools[id]
	return t, ok
}

// Len returns the number of loaded tools.
func (b *FileBox) Len() int { return len(b.tools) }
