package tasks

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// LaunchTemplate renders the argument list for a task process: a fixed base
// argv followed by per-task arguments rendered with text/template.
//
// Templates see the fields of LaunchData. RepoID is rendered first from its
// own template so task arguments can refer to it.
type LaunchTemplate struct {
	base     []string
	taskArgs []*template.Template
	repoID   *template.Template
}

// LaunchData is the template context for one launch.
type LaunchData struct {
	Key       string
	Name      string
	SafeName  string
	Timestamp int64
	RepoID    string
}

// SanitizeName replaces spaces and hyphens with underscores.
func SanitizeName(name string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

func NewLaunchTemplate(base []string, taskArgs []string, repoID string) (*LaunchTemplate, error) {
	if len(base) == 0 || strings.TrimSpace(base[0]) == "" {
		return nil, fmt.Errorf("launch template: empty command")
	}

	l := &LaunchTemplate{base: append([]string(nil), base...)}

	var err error
	if l.repoID, err = template.New("repo_id").Option("missingkey=error").Parse(repoID); err != nil {
		return nil, fmt.Errorf("launch template: parse repo id: %w", err)
	}

	for i, arg := range taskArgs {
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).Option("missingkey=error").Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("launch template: parse argument %d %q: %w", i, arg, err)
		}
		l.taskArgs = append(l.taskArgs, tmpl)
	}

	return l, nil
}

// Args renders the full argv for d at time now.
func (l *LaunchTemplate) Args(d Descriptor, now time.Time) ([]string, error) {
	data := LaunchData{
		Key:       d.Key,
		Name:      d.Name,
		SafeName:  SanitizeName(d.Name),
		Timestamp: now.Unix(),
	}

	repoID, err := render(l.repoID, data)
	if err != nil {
		return nil, fmt.Errorf("render repo id for %q: %w", d.Key, err)
	}
	data.RepoID = repoID

	args := make([]string, 0, len(l.base)+len(l.taskArgs))
	args = append(args, l.base...)
	for _, tmpl := range l.taskArgs {
		arg, err := render(tmpl, data)
		if err != nil {
			return nil, fmt.Errorf("render %s for %q: %w", tmpl.Name(), d.Key, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

func render(tmpl *template.Template, data LaunchData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
