package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects output for the duration of a test with colour off so
// assertions see plain text.
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	restore := SetOutput(&out, &errOut)
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		restore()
		color.NoColor = noColor
	})
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Namespace Not Found", "No task is indexed at 'gecko.v2.latest'.", []string{})
		require.Error(t, err)
		require.Equal(t, "Namespace Not Found", err.Error())
		assert.Equal(t, "Namespace Not Found\n\nNo task is indexed at 'gecko.v2.latest'.\n", errOut.String())
	})

	t.Run("single suggestion is printed plainly", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{"Run 'tcutil login'"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "\nRun 'tcutil login'\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	t.Run("context keys are sorted", func(t *testing.T) {
		_, errOut := capture(t)
		context := map[string]string{
			"Task ID":  "fN1SbArXTPSVFNUvaOlinQ",
			"Artifact": "public/build/target.zip",
		}
		err := ErrorWithContext("Retrieval Failed", "", context, nil)
		require.Equal(t, "Retrieval Failed", err.Error())
		assert.Equal(t,
			"Retrieval Failed\n\n\n  Artifact: public/build/target.zip\n  Task ID: fN1SbArXTPSVFNUvaOlinQ\n",
			errOut.String())
	})
}

func TestStatusMessages(t *testing.T) {
	out, errOut := capture(t)

	Success("Saved %s\n", "tc_credentials.json")
	Success("✓ already prefixed\n")
	Step("Listening on %s\n", "localhost:8080")
	Info("plain %d\n", 1)
	Warning("certificate expired\n")

	assert.Equal(t, "✓ Saved tc_credentials.json\n✓ already prefixed\n→ Listening on localhost:8080\nplain 1\n", out.String())
	assert.Equal(t, "⚠️  certificate expired\n", errOut.String())
}
