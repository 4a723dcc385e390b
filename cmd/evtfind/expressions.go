package main

import (
	"fmt"
	"path/filepath"
	"strings"

	evtfix "github.com/mattkeenan/evtfix/pkg"
)

// GroupExpression matches entries anywhere below a group
type GroupExpression struct {
	Group string
}

func (e *GroupExpression) Evaluate(entry *evtfix.EntryInfo) (bool, error) {
	if e.Group == "" {
		return true, nil
	}
	return strings.HasPrefix(entry.Name, e.Group+"/"), nil
}

func (e *GroupExpression) String() string {
	return fmt.Sprintf("--group %s", e.Group)
}

// NameExpression matches the entry key against a glob
type NameExpression struct {
	Pattern string
}

func (e *NameExpression) Evaluate(entry *evtfix.EntryInfo) (bool, error) {
	return filepath.Match(e.Pattern, entry.Key)
}

func (e *NameExpression) String() string {
	return fmt.Sprintf("--name %s", e.Pattern)
}

// TypeExpression selects group markers or records
type TypeExpression struct {
	Group bool
}

func (e *TypeExpression) Evaluate(entry *evtfix.EntryInfo) (bool, error) {
	return entry.IsGroup == e.Group, nil
}

func (e *TypeExpression) String() string {
	if e.Group {
		return "--type g"
	}
	return "--type r"
}

// AndExpression requires both sides to match
type AndExpression struct {
	Left, Right Expression
}

func (e *AndExpression) Evaluate(entry *evtfix.EntryInfo) (bool, error) {
	left, err := e.Left.Evaluate(entry)
	if err != nil || !left {
		return false, err
	}
	return e.Right.Evaluate(entry)
}

func (e *AndExpression) String() string {
	return fmt.Sprintf("(%s --and %s)", e.Left, e.Right)
}

// PrintAction prints the run file and entry path
type PrintAction struct{}

func (a *PrintAction) Execute(entry *evtfix.EntryInfo, context *EvalContext) error {
	_, err := fmt.Fprintf(context.Output, "%s:%s\n", filepath.Base(context.RunPath), entry.Name)
	return err
}

func (a *PrintAction) String() string {
	return "--print"
}

// LsAction prints a detailed listing line
type LsAction struct{}

func (a *LsAction) Execute(entry *evtfix.EntryInfo, context *EvalContext) error {
	kind, dtype := "r", entry.DType
	if entry.IsGroup {
		kind, dtype = "g", "-"
	}
	_, err := fmt.Fprintf(context.Output, "%s %-8s %8d %10d %s:%s\n",
		kind, dtype, entry.Count, entry.Size, filepath.Base(context.RunPath), entry.Name)
	return err
}

func (a *LsAction) String() string {
	return "--ls"
}

// MetaAction prints a run's event range once per container
type MetaAction struct{}

// Describe prints the metadata of an open container
func (a *MetaAction) Describe(c *evtfix.Container, context *EvalContext) error {
	r, err := c.Meta()
	if err != nil {
		return err
	}
	frib := "no FRIBDAQ data"
	if g, err := c.Group(evtfix.FribEvents); err == nil && g.Len() > 0 {
		frib = fmt.Sprintf("%d FRIBDAQ entries", g.Len())
	}
	_, err = fmt.Fprintf(context.Output, "%s: event_min=%d event_max=%d (%d entries, %s)\n",
		filepath.Base(context.RunPath), r.Min, r.Max, c.Len(), frib)
	return err
}

// Execute is a no-op per entry; the metadata is printed by Describe
func (a *MetaAction) Execute(entry *evtfix.EntryInfo, context *EvalContext) error {
	return nil
}

func (a *MetaAction) String() string {
	return "--meta"
}
