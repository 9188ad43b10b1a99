// Package menu is the terminal front end of the traverse command. Each
// question runs a short-lived bubbletea program on the given input and
// output.
package menu

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/dyluth/tcutil/internal/downloader"
	"github.com/dyluth/tcutil/internal/finder"
	"github.com/dyluth/tcutil/internal/traverse"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// Menu implements traverse.Menu with bubbletea.
type Menu struct {
	in   io.Reader
	out  io.Writer
	opts []tea.ProgramOption
}

var _ traverse.Menu = (*Menu)(nil)

// New creates a Menu. A nil in or out uses the terminal.
func New(in io.Reader, out io.Writer, opts ...tea.ProgramOption) *Menu {
	if out == nil {
		out = os.Stderr
	}
	return &Menu{in: in, out: out, opts: opts}
}

// run executes model until it quits and returns its final state.
func (m *Menu) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(m.out)}
	if m.in != nil {
		opts = append(opts, tea.WithInput(m.in))
	}
	opts = append(opts, m.opts...)

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("menu: %w", err)
	}
	return final, nil
}

// SelectNode shows the children of node.
func (m *Menu) SelectNode(ctx context.Context, node string, choices []traverse.Choice) (traverse.Choice, bool, error) {
	items := make([]item, 0, len(choices))
	for i, c := range choices {
		items = append(items, item{id: i, label: c.Label()})
	}

	current := node
	if current == "" {
		current = "(root)"
	}
	model := newSelectModel(header("Select Namespace", "Current Namespace: "+current), items)

	final, err := m.run(ctx, model)
	if err != nil {
		return traverse.Choice{}, false, err
	}
	chosen := final.(selectModel).chosen
	if chosen < 0 {
		return traverse.Choice{}, false, nil
	}
	return choices[chosen], true, nil
}

// SelectArtifacts lets the user check artifacts of task.
func (m *Menu) SelectArtifacts(ctx context.Context, task finder.Task, artifacts []taskcluster.Artifact) ([]string, error) {
	if len(artifacts) == 0 {
		m.ReportError(ctx, "No Artifacts", fmt.Errorf("task %s has no artifacts", task.TaskID))
		return nil, nil
	}

	items := make([]item, 0, len(artifacts))
	for i, a := range artifacts {
		items = append(items, item{id: i, label: a.Name, desc: a.ContentType})
	}

	var details []string
	if task.Namespace != "" {
		details = append(details, "Task Name: "+task.Namespace)
	}
	details = append(details, "Task ID: "+task.TaskID)
	model := newMultiSelectModel(header("Select Artifacts", details...), items)

	final, err := m.run(ctx, model)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, id := range final.(multiSelectModel).selected(len(artifacts)) {
		names = append(names, artifacts[id].Name)
	}
	return names, nil
}

// ChooseDestination asks for the destination directory, defaulting to the
// working directory.
func (m *Menu) ChooseDestination(ctx context.Context) (string, bool, error) {
	cwd, _ := os.Getwd()
	model := newInputModel("Select Target Folder", "enter ok  esc cancel", "directory", cwd)

	final, err := m.run(ctx, model)
	if err != nil {
		return "", false, err
	}
	dir, ok := final.(inputModel).value()
	return dir, ok && dir != "", nil
}

// AskCredentials asks for a credentials JSON blob. ok is false when the
// user cancels or enters nothing.
func (m *Menu) AskCredentials(ctx context.Context) (string, bool, error) {
	model := newInputModel("Enter Credentials",
		"e.g. {\"clientId\": \"XXX\", \"accessToken\": \"XXX\"}  enter ok  esc skip",
		"credentials JSON", "")
	model.input.EchoMode = textinput.EchoPassword

	final, err := m.run(ctx, model)
	if err != nil {
		return "", false, err
	}
	blob, ok := final.(inputModel).value()
	return blob, ok && blob != "", nil
}

// Confirm asks a yes/no question.
func (m *Menu) Confirm(ctx context.Context, title, question string) (bool, error) {
	final, err := m.run(ctx, confirmModel{title: title, question: question})
	if err != nil {
		return false, err
	}
	return final.(confirmModel).answer, nil
}

// ReportError prints a non-fatal failure.
func (m *Menu) ReportError(_ context.Context, title string, err error) {
	fmt.Fprintf(m.out, "%s\n  %v\n\n", errorStyle.Render(title), err)
}

// Warn prints a non-fatal notice.
func (m *Menu) Warn(title, detail string) {
	fmt.Fprintf(m.out, "%s\n  %s\n\n", warningStyle.Render(title), detail)
}

// ReportResults prints where each artifact of a batch ended up.
func (m *Menu) ReportResults(_ context.Context, results []*downloader.Result) {
	if len(results) == 0 {
		return
	}
	for _, r := range results {
		if r.Placed {
			fmt.Fprintf(m.out, "%s %s -> %s (%s)\n", successStyle.Render("✓"), r.Artifact, r.Path, humanize.Bytes(uint64(r.Bytes)))
		} else {
			fmt.Fprintf(m.out, "%s %s left at %s (%s)\n", warningStyle.Render("⚠"), r.Artifact, r.Path, humanize.Bytes(uint64(r.Bytes)))
		}
	}
	fmt.Fprintln(m.out)
}
