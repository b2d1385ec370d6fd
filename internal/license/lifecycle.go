package license

import (
	"context"
	"fmt"

	"unityrunner/internal/step"
	"unityrunner/internal/tools"
)

// Lifecycle produces the license steps injected into a single session.
type Lifecycle struct {
	Settings Settings
	Options  StepOptions
}

// ActivationSteps returns the steps to run before the build steps.
// Professional and personal licenses activate; nothing is injected when no
// license is configured or when BuildHooks own the license.
func (l Lifecycle) ActivationSteps(env tools.ResolvedEnvironment) []step.Step {
	if l.Settings.Type == TypeNone || l.Settings.PerConfiguration() {
		return nil
	}
	return []step.Step{NewActivateStep(env, l.Settings, l.Options)}
}

// ReturnSteps returns the steps to run after the build steps. Personal
// licenses are never returned.
func (l Lifecycle) ReturnSteps(env tools.ResolvedEnvironment) []step.Step {
	if l.Settings.Type != TypeProfessional || l.Settings.PerConfiguration() {
		return nil
	}
	return []step.Step{NewReturnStep(env, l.Settings, l.Options)}
}

// Executor runs one step to completion.
type Executor func(ctx context.Context, s step.Step) (step.Status, error)

// BuildHooks activate once before the first session of a build and return
// once after the last, regardless of how many sessions run in between.
type BuildHooks struct {
	Settings Settings
	Options  StepOptions
	Resolve  func(ctx context.Context) (tools.ResolvedEnvironment, error)
	Exec     Executor
}

// Enabled reports whether the hooks do anything for these settings.
func (h BuildHooks) Enabled() bool { return h.Settings.PerConfiguration() }

// BeforePreparation activates the license. A failed activation is an error.
func (h BuildHooks) BeforePreparation(ctx context.Context) error {
	if !h.Enabled() {
		return nil
	}
	env, err := h.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve editor for license activation: %w", err)
	}
	status, err := h.Exec(ctx, NewActivateStep(env, h.Settings, h.Options))
	if err != nil {
		return fmt.Errorf("activate license: %w", err)
	}
	if status != step.StatusSuccess {
		return fmt.Errorf("activate license: %s", status)
	}
	return nil
}

// BeforeFinish returns the license. A failed return is only reported.
func (h BuildHooks) BeforeFinish(ctx context.Context) error {
	if !h.Enabled() {
		return nil
	}
	env, err := h.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve editor for license return: %w", err)
	}
	if _, err := h.Exec(ctx, NewReturnStep(env, h.Settings, h.Options)); err != nil {
		return fmt.Errorf("return license: %w", err)
	}
	return nil
}
