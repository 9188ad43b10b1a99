package menu

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/tcutil/internal/downloader"
	"github.com/dyluth/tcutil/internal/finder"
	"github.com/dyluth/tcutil/internal/traverse"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleItems() []item {
	return []item{
		{id: 0, label: "[NS] gecko.v2"},
		{id: 1, label: "[TASK] gecko.nightly fN1SbArXTPSVFNUvaOlinQ"},
		{id: 2, label: ".."},
	}
}

func TestSelectModel(t *testing.T) {
	t.Run("enter picks the highlighted entry", func(t *testing.T) {
		var model tea.Model = newSelectModel("Select Namespace", sampleItems())
		model, _ = model.Update(keyDown)
		model, cmd := model.Update(keyEnter)

		assert.Equal(t, 1, model.(selectModel).chosen)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("esc cancels", func(t *testing.T) {
		var model tea.Model = newSelectModel("Select Namespace", sampleItems())
		model, cmd := model.Update(keyEsc)

		assert.Equal(t, -1, model.(selectModel).chosen)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("view lists every entry", func(t *testing.T) {
		view := newSelectModel("Select Namespace", sampleItems()).View()
		assert.Contains(t, view, "[NS] gecko.v2")
		assert.Contains(t, view, "..")
	})
}

func TestMultiSelectModel(t *testing.T) {
	t.Run("space toggles and enter confirms", func(t *testing.T) {
		var model tea.Model = newMultiSelectModel("Select Artifacts", sampleItems())
		model, _ = model.Update(keySpace)
		model, _ = model.Update(keyDown)
		model, _ = model.Update(keyDown)
		model, _ = model.Update(keySpace)
		model, _ = model.Update(keyEnter)

		assert.Equal(t, []int{0, 2}, model.(multiSelectModel).selected(3))
	})

	t.Run("toggling twice unchecks", func(t *testing.T) {
		var model tea.Model = newMultiSelectModel("Select Artifacts", sampleItems())
		model, _ = model.Update(keySpace)
		model, _ = model.Update(keySpace)
		model, _ = model.Update(keyEnter)

		assert.Empty(t, model.(multiSelectModel).selected(3))
	})

	t.Run("esc selects nothing", func(t *testing.T) {
		var model tea.Model = newMultiSelectModel("Select Artifacts", sampleItems())
		model, _ = model.Update(keySpace)
		model, _ = model.Update(keyEsc)

		assert.Empty(t, model.(multiSelectModel).selected(3))
	})

	t.Run("checkboxes are rendered", func(t *testing.T) {
		var model tea.Model = newMultiSelectModel("Select Artifacts", sampleItems())
		model, _ = model.Update(keySpace)

		view := model.View()
		assert.Contains(t, view, "[x] [NS] gecko.v2")
		assert.Contains(t, view, "[ ] ..")
	})
}

func TestInputModel(t *testing.T) {
	t.Run("typed text is submitted", func(t *testing.T) {
		var model tea.Model = newInputModel("Select Target Folder", "", "", "")
		model, _ = model.Update(runes("/tmp/out "))
		model, _ = model.Update(keyEnter)

		value, ok := model.(inputModel).value()
		assert.True(t, ok)
		assert.Equal(t, "/tmp/out", value)
	})

	t.Run("initial value is kept", func(t *testing.T) {
		var model tea.Model = newInputModel("Select Target Folder", "", "", "/home/me")
		model, _ = model.Update(keyEnter)

		value, ok := model.(inputModel).value()
		assert.True(t, ok)
		assert.Equal(t, "/home/me", value)
	})

	t.Run("esc cancels", func(t *testing.T) {
		var model tea.Model = newInputModel("Select Target Folder", "", "", "/home/me")
		model, _ = model.Update(keyEsc)

		_, ok := model.(inputModel).value()
		assert.False(t, ok)
	})
}

func TestConfirmModel(t *testing.T) {
	testCases := []struct {
		name   string
		key    tea.KeyMsg
		answer bool
	}{
		{name: "y", key: runes("y"), answer: true},
		{name: "enter", key: keyEnter, answer: true},
		{name: "n", key: runes("n"), answer: false},
		{name: "esc", key: keyEsc, answer: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var model tea.Model = confirmModel{title: "Finished", question: "Continue?"}
			model, cmd := model.Update(tc.key)

			assert.True(t, model.(confirmModel).done)
			assert.Equal(t, tc.answer, model.(confirmModel).answer)
			require.NotNil(t, cmd)
		})
	}

	t.Run("other keys are ignored", func(t *testing.T) {
		var model tea.Model = confirmModel{title: "Finished", question: "Continue?"}
		model, cmd := model.Update(runes("x"))
		assert.False(t, model.(confirmModel).done)
		assert.Nil(t, cmd)
	})
}

func TestMenu_Programs(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm reads the answer from input", func(t *testing.T) {
		var out bytes.Buffer
		m := New(strings.NewReader("n"), &out)

		answer, err := m.Confirm(ctx, "Finished", "Would you like to continue traversing?")
		require.NoError(t, err)
		assert.False(t, answer)
	})

	t.Run("select node moves and picks", func(t *testing.T) {
		var out bytes.Buffer
		m := New(strings.NewReader("j\r"), &out)
		choices := []traverse.Choice{
			{Kind: traverse.ChoiceNamespace, Namespace: "gecko.v2"},
			{Kind: traverse.ChoiceParent},
		}

		choice, ok, err := m.SelectNode(ctx, "gecko", choices)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, traverse.ChoiceParent, choice.Kind)
	})
}

func TestMenu_Reports(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	m := New(nil, &out)

	m.ReportError(ctx, "Retrieval Failed", errors.New("403 forbidden"))
	m.ReportResults(ctx, []*downloader.Result{
		{Artifact: "public/build/target.zip", Path: "/tmp/out/target.zip", Placed: true, Bytes: 2048},
		{Artifact: "public/build/target.txt", Path: "/tmp/tcutil-1/target.txt", Bytes: 10},
	})

	output := out.String()
	assert.Contains(t, output, "Retrieval Failed")
	assert.Contains(t, output, "403 forbidden")
	assert.Contains(t, output, "public/build/target.zip -> /tmp/out/target.zip (2.0 kB)")
	assert.Contains(t, output, "public/build/target.txt left at /tmp/tcutil-1/target.txt")
}

func TestMenu_SelectArtifactsWithoutArtifacts(t *testing.T) {
	var out bytes.Buffer
	m := New(nil, &out)

	names, err := m.SelectArtifacts(context.Background(), finder.Task{TaskID: "fN1SbArXTPSVFNUvaOlinQ"}, []taskcluster.Artifact{})
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Contains(t, out.String(), "has no artifacts")
}
