package tes

import (
	"context"

	"github.com/kellrott/gwftool/internal/tool"
)

type fakeTool struct {
	id, image, dir string
}

func (f *fakeTool) ToolID() string                 { return f.id }
func (f *fakeTool) ToolDir() string                 { return f.dir }
func (f *fakeTool) DockerImage() string             { return f.image }
func (f *fakeTool) Outputs() map[string]tool.Output { return nil }
func (f *fakeTool) RenderCmdline(context.Context, map[string]any, map[string]any) (string, error) {
	return "echo ok", nil
}
