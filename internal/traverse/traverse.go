// Package traverse drives interactive navigation of the task index.
//
// The controller is a two-state machine. At a node it lists the children,
// asks the menu for a choice and moves down, moves up, or retrieves
// artifacts of a task while staying put. Cancelling the menu exits.
// Retrieval failures are reported and never change the state.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dyluth/tcutil/internal/downloader"
	"github.com/dyluth/tcutil/internal/finder"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// Tree is the namespace tree engine. *finder.Finder implements it.
type Tree interface {
	IsRoot(ns string) bool
	Parent(ns string) string
	IsTask(ctx context.Context, ns string) bool
	FindTaskID(ctx context.Context, ns string) (string, error)
	ListChildren(ctx context.Context, node string, pageSize int) (*finder.Children, error)
}

// Retriever is the artifact retrieval engine. *downloader.Downloader implements it.
type Retriever interface {
	ListLatestArtifacts(ctx context.Context, taskID string) ([]taskcluster.Artifact, error)
	Retrieve(ctx context.Context, taskID, name, destDir string) (*downloader.Result, error)
}

// Menu is the interactive surface. Every method blocks until the user answers.
// A returned error aborts the traversal; user cancellation is reported
// through the boolean results instead.
type Menu interface {
	// SelectNode shows the choices of node. ok is false when the user cancels.
	SelectNode(ctx context.Context, node string, choices []Choice) (choice Choice, ok bool, err error)
	// SelectArtifacts lets the user pick any number of artifacts of a task.
	SelectArtifacts(ctx context.Context, task finder.Task, artifacts []taskcluster.Artifact) ([]string, error)
	// ChooseDestination asks for the destination directory. ok is false when the user cancels.
	ChooseDestination(ctx context.Context) (dir string, ok bool, err error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, title, question string) (bool, error)
	// ReportError shows a non-fatal failure.
	ReportError(ctx context.Context, title string, err error)
	// ReportResults shows the outcome of a retrieval batch.
	ReportResults(ctx context.Context, results []*downloader.Result)
}

// State is the controller state: at a node, or exited.
type State struct {
	Node   string
	Exited bool
}

// Controller runs the traversal loop.
type Controller struct {
	tree      Tree
	retriever Retriever
	menu      Menu
	logger    *slog.Logger
	pageSize  int
	destDir   string
	results   []*downloader.Result
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		c.pageSize = n
	}
}

// WithDestDir fixes the destination directory. Without it the menu is asked
// once, before the first retrieval.
func WithDestDir(dir string) Option {
	return func(c *Controller) {
		c.destDir = dir
	}
}

// New creates a Controller.
func New(tree Tree, retriever Retriever, menu Menu, opts ...Option) *Controller {
	c := &Controller{
		tree:      tree,
		retriever: retriever,
		menu:      menu,
		logger:    slog.New(slog.DiscardHandler),
		pageSize:  finder.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Results returns every artifact retrieved so far, in order.
func (c *Controller) Results() []*downloader.Result {
	return c.results
}

// Run traverses from entry until the user exits. If entry is itself a
// task, its artifacts are offered first and traversal starts at its parent.
func (c *Controller) Run(ctx context.Context, entry string) error {
	state, err := c.Start(ctx, entry)
	if err != nil {
		return err
	}
	for !state.Exited {
		if state, err = c.Step(ctx, state); err != nil {
			return err
		}
	}
	c.logger.Debug("traversal finished", "retrieved", len(c.results))
	return nil
}

// Start computes the initial state for entry.
func (c *Controller) Start(ctx context.Context, entry string) (State, error) {
	if !c.tree.IsTask(ctx, entry) {
		return State{Node: entry}, nil
	}

	taskID, err := c.tree.FindTaskID(ctx, entry)
	if err != nil {
		// IsTask just succeeded; treat a failing second lookup as a plain namespace.
		c.menu.ReportError(ctx, "Lookup Failed", err)
		return State{Node: entry}, nil
	}

	exit, err := c.retrieveTask(ctx, finder.Task{Namespace: entry, TaskID: taskID})
	if err != nil {
		return State{}, err
	}
	return State{Node: c.tree.Parent(entry), Exited: exit}, nil
}

// Step performs one transition from state.
func (c *Controller) Step(ctx context.Context, state State) (State, error) {
	if state.Exited {
		return state, nil
	}
	node := state.Node

	children, err := c.tree.ListChildren(ctx, node, c.pageSize)
	if err != nil {
		c.menu.ReportError(ctx, "Listing Incomplete", err)
	}
	if children == nil {
		children = &finder.Children{Node: node}
	}

	choice, ok, err := c.menu.SelectNode(ctx, node, Choices(children, c.tree.IsRoot(node)))
	if err != nil {
		return state, fmt.Errorf("menu failed at '%s': %w", node, err)
	}
	if !ok {
		c.logger.Debug("menu cancelled", "namespace", node)
		return State{Node: node, Exited: true}, nil
	}
	c.logger.Debug("selected", "namespace", node, "choice", choice.Label())

	switch choice.Kind {
	case ChoiceParent:
		return State{Node: c.tree.Parent(node)}, nil
	case ChoiceNamespace:
		return State{Node: choice.Namespace}, nil
	case ChoiceTask:
		exit, err := c.retrieveTask(ctx, finder.Task{Namespace: choice.Namespace, TaskID: choice.TaskID})
		if err != nil {
			return state, err
		}
		return State{Node: node, Exited: exit}, nil
	default:
		return state, fmt.Errorf("unknown menu choice %d", choice.Kind)
	}
}

// retrieveTask offers the artifacts of task and retrieves the selection.
// It reports whether the user chose to stop traversing. Only menu
// failures are returned.
func (c *Controller) retrieveTask(ctx context.Context, task finder.Task) (bool, error) {
	artifacts, err := c.retriever.ListLatestArtifacts(ctx, task.TaskID)
	if err != nil {
		c.menu.ReportError(ctx, "Listing Artifacts Failed", err)
		return false, nil
	}

	names, err := c.menu.SelectArtifacts(ctx, task, artifacts)
	if err != nil {
		return false, fmt.Errorf("menu failed for task %s: %w", task.TaskID, err)
	}
	if len(names) == 0 {
		return false, nil
	}

	if c.destDir == "" {
		dir, ok, err := c.menu.ChooseDestination(ctx)
		if err != nil {
			return false, fmt.Errorf("menu failed for task %s: %w", task.TaskID, err)
		}
		if !ok || dir == "" {
			return c.askContinue(ctx, "Cancelled")
		}
		c.destDir = dir
	}

	var batch []*downloader.Result
	for _, name := range names {
		c.logger.Info("retrieving artifact", "task_id", task.TaskID, "artifact", name)
		result, err := c.retriever.Retrieve(ctx, task.TaskID, name, c.destDir)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return true, nil
			}
			c.menu.ReportError(ctx, "Retrieval Failed", err)
			continue
		}
		batch = append(batch, result)
	}
	c.results = append(c.results, batch...)
	c.menu.ReportResults(ctx, batch)

	return c.askContinue(ctx, "Finished")
}

// askContinue asks whether to keep traversing and reports whether to stop.
func (c *Controller) askContinue(ctx context.Context, title string) (bool, error) {
	again, err := c.menu.Confirm(ctx, title, "Would you like to continue traversing?")
	if err != nil {
		return false, fmt.Errorf("menu failed: %w", err)
	}
	return !again, nil
}
