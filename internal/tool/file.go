package tool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/goccy/go-yaml"
)

// Descriptor is the on-disk shape of a tool file this package knows how to
// load: tool_dir/<id>.yaml. It is a deliberately small stand-in for Galaxy's
// XML tool format — full XML parsing is an external collaborator per
// SPEC_FULL.md §1.
type Descriptor struct {
	ID        string            `yaml:"id"`
	Image     string            `yaml:"image"`
	Command   string            `yaml:"command"`
	Outputs   []OutputDef       `yaml:"outputs"`
	Interp    string            `yaml:"interpreter,omitempty"`
	Resources map[string]string `yaml:"resources,omitempty"`
}

// OutputDef is the YAML shape of one declared output.
type OutputDef struct {
	Name        string `yaml:"name"`
	FromWorkDir string `yaml:"from_work_dir,omitempty"`
}

// FileTool is the default Tool implementation, loaded from a Descriptor.
type FileTool struct {
	dir  string
	desc Descriptor
	tmpl *template.Template
}

var pipeVarPattern = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\}?`)

// Load reads a tool descriptor from path and compiles its command template.
//
// Galaxy tool command blocks reference parameters with a Cheetah-flavoured
// "$name" / "$name.sub" syntax; since the template engine itself is an
// external collaborator (SPEC_FULL.md §1), this default rewrites that syntax
// to a `{{ render . "name.sub" }}` call at load time so text/template can
// stand in as the opaque renderer for the reference tools exercised by the
// test suite.
func Load(path string) (*FileTool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tool: read descriptor %s: %w", path, err)
	}
	var desc Descriptor
	if err := yaml.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("tool: parse descriptor %s: %w", path, err)
	}
	if desc.ID == "" {
		return nil, fmt.Errorf("tool: descriptor %s missing id", path)
	}

	goTemplate := rewriteCheetahVars(desc.Command)
	tmpl, err := template.New(desc.ID).Funcs(template.FuncMap{
		"render": func(map[string]any, string) (string, error) { return "", nil },
	}).Parse(goTemplate)
	if err != nil {
		return nil, fmt.Errorf("tool: compile command template for %s: %w", desc.ID, err)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("tool: resolve tool_dir for %s: %w", path, err)
	}

	return &FileTool{dir: abs, desc: desc, tmpl: tmpl}, nil
}

func rewriteCheetahVars(cmd string) string {
	return pipeVarPattern.ReplaceAllString(cmd, `{{ render . "$1" }}`)
}

func (t *FileTool) ToolID() string      { return t.desc.ID }
func (t *FileTool) ToolDir() string     { return t.dir }
func (t *FileTool) DockerImage() string { return t.desc.Image }

func (t *FileTool) Outputs() map[string]Output {
	out := make(map[string]Output, len(t.desc.Outputs))
	for _, o := range t.desc.Outputs {
		out[o.Name] = Output{
			Name:        o.Name,
			FromWorkDir: o.FromWorkDir,
			HasWorkDir:  o.FromWorkDir != "",
		}
	}
	return out
}

// RenderCmdline merges inputs and outputs into one namespace (outputs win on
// key collision, matching Galaxy's own "$outputname" shadowing a same-named
// parameter) and executes the compiled template against it. File-class
// values render to their path; ToolOutput-shaped values render to their
// declared name, mirroring tool_io.py's CMDFilter.
func (t *FileTool) RenderCmdline(ctx context.Context, inputs map[string]any, outputs map[string]any) (string, error) {
	env := make(map[string]any, len(inputs)+len(outputs))
	for k, v := range inputs {
		env[k] = v
	}
	for k, v := range outputs {
		env[k] = v
	}

	var buf bytes.Buffer
	funcs := template.FuncMap{"render": func(e map[string]any, path string) (string, error) {
		return renderFileArg(lookupPath(e, path))
	}}
	if err := t.tmpl.Funcs(funcs).Execute(&buf, env); err != nil {
		return "", fmt.Errorf("tool: render command for %s: %w", t.desc.ID, err)
	}

	out := strings.Join(strings.Fields(buf.String()), " ")
	if t.desc.Interp != "" {
		out = t.desc.Interp + " " + out
	}
	return out, nil
}

func lookupPath(env map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = env
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// renderFileArg is the CMDFilter equivalent: a File-class value renders to
// its path, a ToolOutput placeholder value renders to its name, anything
// else renders via fmt.Sprint.
func renderFileArg(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case map[string]any:
		if cls, _ := val["class"].(string); cls == "File" {
			if p, ok := val["path"].(string); ok {
				return p, nil
			}
		}
		if name, ok := val["name"].(string); ok {
			return name, nil
		}
		return "", nil
	case string:
		return val, nil
	default:
		return fmt.Sprint(val), nil
	}
}
