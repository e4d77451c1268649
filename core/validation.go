package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rule validates one field with validator tag syntax, e.g. "required,max=64".
type Rule struct {
	Field string
	Label string
	Rules string
}

func (r Rule) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Field
}

func (r Rule) required() bool {
	for _, tag := range strings.Split(r.Rules, ",") {
		if strings.TrimSpace(tag) == "required" {
			return true
		}
	}
	return false
}

// Validator is the validation collaborator. It returns nil when data passes
// and an error matching ErrValidation when it does not.
type Validator interface {
	Validate(ctx context.Context, rules []Rule, data Record) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, rules []Rule, data Record) error

func (f ValidatorFunc) Validate(ctx context.Context, rules []Rule, data Record) error {
	return f(ctx, rules, data)
}

// RuleValidator checks records against Rules with go-playground/validator.
//
// Fields absent from the record are only checked by rules that contain
// "required", so partial updates validate the fields they carry.
type RuleValidator struct {
	validate *validator.Validate
}

// NewRuleValidator returns a RuleValidator backed by a fresh validator instance.
func NewRuleValidator() *RuleValidator {
	return &RuleValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Engine exposes the underlying validator, e.g. to register custom tags.
func (v *RuleValidator) Engine() *validator.Validate {
	return v.validate
}

func (v *RuleValidator) Validate(ctx context.Context, rules []Rule, data Record) error {
	failed := map[string]string{}
	for _, rule := range rules {
		value, present := data[rule.Field]
		if !present || value == nil {
			if rule.required() {
				failed[rule.Field] = fmt.Sprintf("%s is required", rule.label())
			}
			continue
		}
		err := v.validate.VarCtx(ctx, value, rule.Rules)
		if err == nil {
			continue
		}
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			msg := fmt.Sprintf("%s failed on the '%s' rule", rule.label(), fe.Tag())
			if fe.Param() != "" {
				msg = fmt.Sprintf("%s failed on the '%s=%s' rule", rule.label(), fe.Tag(), fe.Param())
			}
			failed[rule.Field] = msg
			continue
		}
		return fmt.Errorf("core: validate %s: %w", rule.Field, err)
	}
	if len(failed) > 0 {
		return &ValidationError{Fields: failed}
	}
	return nil
}
