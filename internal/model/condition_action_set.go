// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

type ActionType string

const (
	ActionAbort         ActionType = "Abort"
	ActionContinue      ActionType = "Continue"
	ActionSetReturnCode ActionType = "SetReturnCode"
	ActionUserCode      ActionType = "UserCode"
)

const (
	conditionSetAttrName  = "Name"
	conditionSetAttrItems = "Items"

	conditionItemCondition = "Condition"
	conditionItemAction    = "Action"
	conditionItemArgument  = "Argument"
)

// status variables available in conditions and the macro variables they are generated as
var conditionVariables = map[string]string{
	"rc":     "&trans_rc",
	"syserr": "&syserr",
	"rows":   "&etls_recnt",
}

var conditionOperators = map[string]string{
	"==":  "eq",
	"!=":  "ne",
	"<":   "lt",
	"<=":  "le",
	">":   "gt",
	">=":  "ge",
	"and": "and",
	"&&":  "and",
	"or":  "or",
	"||":  "or",
	"+":   "+",
	"-":   "-",
	"*":   "*",
	"/":   "/",
}

// Status - step status the conditions are evaluated against
type Status struct {
	ReturnCode int
	SysErr     int
	Rows       int
}

func (s Status) env() map[string]any {
	return map[string]any{
		"rc":     s.ReturnCode,
		"syserr": s.SysErr,
		"rows":   s.Rows,
	}
}

// ConditionAction - condition over the step status and the action taken when it holds
type ConditionAction struct {
	Condition string
	Action    ActionType
	// Argument - return code for SetReturnCode, code for UserCode, message for Abort
	Argument string
}

// Validate - compiles the condition as a boolean expression over rc, syserr and rows
func (ca ConditionAction) Validate() error {
	if _, err := compileCondition(ca.Condition); err != nil {
		return err
	}
	switch ca.Action {
	case ActionAbort, ActionContinue, ActionUserCode:
	case ActionSetReturnCode:
		if _, err := strconv.Atoi(ca.Argument); err != nil {
			return fmt.Errorf("return code \"%s\" is not a number: %w", ca.Argument, ErrInvalidOption)
		}
	default:
		return fmt.Errorf("unknown action \"%s\": %w", ca.Action, ErrInvalidOption)
	}
	return nil
}

// ConditionActionSet - named ordered list of condition/action pairs checked after the step body
type ConditionActionSet struct {
	object
	name  string
	items []ConditionAction
}

func (s *ConditionActionSet) Name() string {
	return s.name
}

func (s *ConditionActionSet) SetName(v string) {
	setField(&s.object, "Name", &s.name, v)
}

func (s *ConditionActionSet) Items() []ConditionAction {
	return slices.Clone(s.items)
}

// Add - validates and appends the pair
func (s *ConditionActionSet) Add(ca ConditionAction) error {
	if err := ca.Validate(); err != nil {
		return err
	}
	before := slices.Clone(s.items)
	s.items = append(s.items, ca)
	recordList(&s.object, "Items", &s.items, before)
	return nil
}

func (s *ConditionActionSet) Remove(idx int) error {
	if idx < 0 || idx >= len(s.items) {
		return fmt.Errorf("condition index %d out of range: %w", idx, ErrInvalidOption)
	}
	before := slices.Clone(s.items)
	s.items = slices.Delete(s.items, idx, idx+1)
	recordList(&s.object, "Items", &s.items, before)
	return nil
}

// Evaluate - returns the pairs whose condition holds for status
func (s *ConditionActionSet) Evaluate(status Status) ([]ConditionAction, error) {
	var res []ConditionAction
	for _, ca := range s.items {
		program, err := compileCondition(ca.Condition)
		if err != nil {
			return nil, err
		}
		out, err := expr.Run(program, status.env())
		if err != nil {
			return nil, fmt.Errorf("unable to evaluate condition \"%s\": %w", ca.Condition, err)
		}
		if ok, _ := out.(bool); ok {
			res = append(res, ca)
		}
	}
	return res, nil
}

func (s *ConditionActionSet) IsComplete() bool {
	return !slices.ContainsFunc(s.items, func(ca ConditionAction) bool {
		return ca.Validate() != nil
	})
}

func (s *ConditionActionSet) IsChanged() bool {
	return s.changed
}

// generate - emits a macro %if block per pair
func (s *ConditionActionSet) generate(seg *codegen.Segment, stepName string) error {
	if len(s.items) == 0 {
		return nil
	}
	seg.AddLinef("/* Condition action set: %s */", s.name)
	for _, ca := range s.items {
		cond, err := MacroCondition(ca.Condition)
		if err != nil {
			return err
		}
		seg.AddLinef("%%if %%eval(%s) %%then %%do;", cond)
		seg.Indent()
		switch ca.Action {
		case ActionAbort:
			msg := ca.Argument
			if msg == "" {
				msg = fmt.Sprintf("Step %s aborted, condition %s met", stepName, ca.Condition)
			}
			seg.AddLinef("%%put ERROR: %s;", msg)
			seg.AddLine("%abort cancel;")
		case ActionContinue:
			seg.AddLinef("%%put NOTE: Condition %s met, processing continues;", ca.Condition)
		case ActionSetReturnCode:
			seg.AddLinef("%%let trans_rc = %s;", ca.Argument)
		case ActionUserCode:
			seg.AddLine(ca.Argument)
		}
		seg.Unindent()
		seg.AddLine("%end;")
	}
	seg.NewLine()
	return nil
}

// MacroCondition - translates a condition into a macro expression, e.g. rc > 4 && rows == 0
// gives ((&trans_rc gt 4) and (&etls_recnt eq 0))
func MacroCondition(condition string) (string, error) {
	tree, err := parser.Parse(condition)
	if err != nil {
		return "", fmt.Errorf("cannot parse condition \"%s\": %w", condition, ErrInvalidCondition)
	}
	return macroNode(tree.Node)
}

func macroNode(node ast.Node) (string, error) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		if v, ok := conditionVariables[n.Value]; ok {
			return v, nil
		}
		return "", fmt.Errorf("unknown variable \"%s\": %w", n.Value, ErrInvalidCondition)
	case *ast.IntegerNode:
		return strconv.Itoa(n.Value), nil
	case *ast.FloatNode:
		return strconv.FormatFloat(n.Value, 'g', -1, 64), nil
	case *ast.BoolNode:
		if n.Value {
			return "1", nil
		}
		return "0", nil
	case *ast.StringNode:
		return "%str(" + n.Value + ")", nil
	case *ast.UnaryNode:
		operand, err := macroNode(n.Node)
		if err != nil {
			return "", err
		}
		switch n.Operator {
		case "not", "!":
			return "not (" + operand + ")", nil
		case "-":
			return "-" + operand, nil
		case "+":
			return operand, nil
		}
		return "", fmt.Errorf("unsupported operator \"%s\": %w", n.Operator, ErrInvalidCondition)
	case *ast.BinaryNode:
		op, ok := conditionOperators[n.Operator]
		if !ok {
			return "", fmt.Errorf("unsupported operator \"%s\": %w", n.Operator, ErrInvalidCondition)
		}
		left, err := macroNode(n.Left)
		if err != nil {
			return "", err
		}
		right, err := macroNode(n.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " " + op + " " + right + ")", nil
	}
	return "", fmt.Errorf("unsupported expression %T: %w", node, ErrInvalidCondition)
}

func compileCondition(condition string) (*vm.Program, error) {
	if strings.TrimSpace(condition) == "" {
		return nil, fmt.Errorf("empty condition: %w", ErrInvalidCondition)
	}
	program, err := expr.Compile(condition, expr.Env(Status{}.env()), expr.AsBool())
	if err != nil {
		log.Debug().
			Str("Condition", condition).
			Err(err).
			Msg("unable to compile condition")
		return nil, fmt.Errorf("cannot compile condition \"%s\": %w: %w", condition, ErrInvalidCondition, err)
	}
	if _, err = MacroCondition(condition); err != nil {
		return nil, err
	}
	return program, nil
}

func (s *ConditionActionSet) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !s.changed {
		return nil
	}
	p, err := a.Acquire(ctx, s.id, omr.TypeConditionActionSet)
	if err != nil {
		return err
	}
	items := make([]any, 0, len(s.items))
	for _, ca := range s.items {
		items = append(items, map[string]any{
			conditionItemCondition: ca.Condition,
			conditionItemAction:    string(ca.Action),
			conditionItemArgument:  ca.Argument,
		})
	}
	p.Set(conditionSetAttrName, s.name).
		Set(conditionSetAttrItems, items)
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	s.markClean()
	return nil
}

func (s *ConditionActionSet) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if s.IsNew() {
		return nil
	}
	return a.Delete(ctx, s.id, omr.TypeConditionActionSet)
}

func (s *ConditionActionSet) UpdateIDs(idMap omr.IDMap) {
	s.updateID(idMap)
}

func (ws *Workspace) loadConditionActionSet(ctx context.Context, a *omr.Adapter, id omr.ObjectID) (
	*ConditionActionSet, error,
) {
	p, err := a.Acquire(ctx, id, omr.TypeConditionActionSet)
	if err != nil {
		return nil, err
	}
	s := &ConditionActionSet{
		object: object{ws: ws, id: p.ID},
		name:   p.String(conditionSetAttrName),
	}
	if !p.Has(conditionSetAttrItems) {
		return s, nil
	}
	raw, err := cast.ToSliceE(p.Attributes[conditionSetAttrItems])
	if err != nil {
		return nil, fmt.Errorf("condition action set %s: %w", id, err)
	}
	for _, item := range raw {
		m := cast.ToStringMapString(item)
		s.items = append(s.items, ConditionAction{
			Condition: m[conditionItemCondition],
			Action:    ActionType(m[conditionItemAction]),
			Argument:  m[conditionItemArgument],
		})
	}
	return s, nil
}
