package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/tcutil/internal/resolver"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

var (
	artifactsOutput string
	artifactsFilter string
	artifactsType   string
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts TASK_ID|NAMESPACE",
	Short: "List the latest artifacts of a task",
	Long: `List the latest artifacts of a task.

The target is a task ID when it is a valid slugid and an index namespace
otherwise.

Output Formats:
  default - "[Type] | [Name]" table
  jsonl   - Line-delimited JSON, one artifact per line
  yaml    - A single YAML document

Examples:
  tcutil artifacts fN1SbArXTPSVFNUvaOlinQ
  tcutil artifacts gecko.v2.mozilla-central.latest.firefox.linux64-opt --filter 'public/build/*'
  tcutil artifacts fN1SbArXTPSVFNUvaOlinQ --type 'application/*' -o jsonl | jq .name`,
	Args: cobra.ExactArgs(1),
	RunE: runArtifacts,
}

func init() {
	artifactsCmd.Flags().StringVarP(&artifactsOutput, "output", "o", "default", "Output format: default, jsonl or yaml")
	artifactsCmd.Flags().StringVar(&artifactsFilter, "filter", "", "Filter artifacts by name (glob pattern)")
	artifactsCmd.Flags().StringVar(&artifactsType, "type", "", "Filter artifacts by content type (glob pattern)")

	rootCmd.AddCommand(artifactsCmd)
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	target := resolver.Target{Namespace: args[0]}
	if taskcluster.ValidateTaskID(args[0]) == nil {
		target = resolver.Target{TaskID: args[0]}
	}

	resolved, err := resolveTarget(cmd.Context(), s, target)
	if err != nil {
		return err
	}
	return listTaskArtifacts(cmd, s, resolved.TaskID, artifactsOutput, artifactsFilter, artifactsType)
}
