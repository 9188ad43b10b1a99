package traverse

import (
	"github.com/dyluth/tcutil/internal/finder"
)

// ChoiceKind tells the entries of a node menu apart.
type ChoiceKind int

const (
	// ChoiceNamespace descends into a child namespace.
	ChoiceNamespace ChoiceKind = iota
	// ChoiceTask opens the artifacts of a child task.
	ChoiceTask
	// ChoiceParent goes up one level. Never offered at the root.
	ChoiceParent
)

// Menu labels, as shown by the menu widget.
const (
	parentLabel    = ".."
	namespaceLabel = "[NS]"
	taskLabel      = "[TASK]"
)

// Choice is one entry of a node menu.
type Choice struct {
	Kind      ChoiceKind
	Namespace string // Child namespace, or the namespace the task is indexed at
	TaskID    string // Only for ChoiceTask
}

// Label renders the choice as "[NS] ns", "[TASK] ns taskId" or "..".
func (c Choice) Label() string {
	switch c.Kind {
	case ChoiceNamespace:
		return namespaceLabel + " " + c.Namespace
	case ChoiceTask:
		return taskLabel + " " + c.Namespace + " " + c.TaskID
	default:
		return parentLabel
	}
}

// Choices builds the menu for a node: child namespaces, then child tasks,
// then ".." unless the node is the root.
func Choices(children *finder.Children, atRoot bool) []Choice {
	choices := make([]Choice, 0, len(children.Namespaces)+len(children.Tasks)+1)
	for _, ns := range children.Namespaces {
		choices = append(choices, Choice{Kind: ChoiceNamespace, Namespace: ns})
	}
	for _, task := range children.Tasks {
		choices = append(choices, Choice{Kind: ChoiceTask, Namespace: task.Namespace, TaskID: task.TaskID})
	}
	if !atRoot {
		choices = append(choices, Choice{Kind: ChoiceParent})
	}
	return choices
}
