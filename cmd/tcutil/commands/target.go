package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/tcutil/internal/printer"
	"github.com/dyluth/tcutil/internal/resolver"
)

// checkTargetFlags enforces that exactly one of --namespace and --taskid is set.
func checkTargetFlags(namespace, taskID string) error {
	switch {
	case namespace != "" && taskID != "":
		return printer.Error(
			"conflicting target",
			"--namespace and --taskid are mutually exclusive.",
			[]string{"Pass only one of them"},
		)
	case namespace == "" && taskID == "":
		return printer.Error(
			"no target given",
			"A task must be addressed by namespace or by task ID.",
			[]string{
				"Use a namespace:\n  tcutil download -n gecko.v2.mozilla-central.latest.firefox.linux64-opt",
				"Use a task ID:\n  tcutil download -t fN1SbArXTPSVFNUvaOlinQ",
			},
		)
	}
	return nil
}

// resolveTarget turns a namespace or task id into a task id, printing a
// formatted error when that fails.
func resolveTarget(ctx context.Context, s *session, target resolver.Target) (*resolver.Resolved, error) {
	resolved, err := resolver.Resolve(ctx, s.finder(), target, s.logger)
	if err == nil {
		s.logger.Debug("resolved target", "namespace", resolved.Namespace, "task_id", resolved.TaskID)
		return resolved, nil
	}

	var notFound *resolver.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return nil, printer.Error(
			fmt.Sprintf("namespace '%s' not found", notFound.Namespace),
			resolver.FormatNotFound(notFound),
			nil,
		)
	case resolver.IsInvalidTaskIDError(err):
		return nil, printer.Error(
			fmt.Sprintf("invalid task ID '%s'", target.TaskID),
			err.Error(),
			[]string{"Task IDs are 22-character slugids, e.g. fN1SbArXTPSVFNUvaOlinQ"},
		)
	case resolver.IsLookupError(err):
		return nil, printer.ErrorWithContext(
			"index lookup failed",
			err.Error(),
			map[string]string{"Root URL": s.config.RootURL},
			[]string{"Check the root URL and your network connection, then retry"},
		)
	default:
		return nil, printer.Error("cannot resolve target", err.Error(), nil)
	}
}
