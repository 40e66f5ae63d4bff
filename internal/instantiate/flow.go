package instantiate

import (
	"context"
	"fmt"
	"sync"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/metrics"
	"github.com/vango-dev/widgets/internal/params"
	"github.com/vango-dev/widgets/internal/placeholder"
	"github.com/vango-dev/widgets/internal/widget"
)

// State is a step of an instantiation attempt.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateNoPromptNeeded
	StatePromptOpen
	StateCancelled
	StateSubmitted
	StateDispatched
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateScanning:       "scanning",
	StateNoPromptNeeded: "no-prompt-needed",
	StatePromptOpen:     "prompt-open",
	StateCancelled:      "cancelled",
	StateSubmitted:      "submitted",
	StateDispatched:     "dispatched",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Flow drives one instantiation attempt at a time:
//
//	Idle -> Scanning -> NoPromptNeeded -> Dispatched
//	                 -> PromptOpen -> Submitted -> Dispatched
//	                               -> Cancelled -> Idle
//
// Dispatched is terminal; Reset starts a new attempt. A failed dispatch
// returns the flow to Idle.
type Flow struct {
	d *Dispatcher

	mu         sync.Mutex
	state      State
	widget     widget.Widget
	target     string
	container  string
	resolution params.Resolution
}

// NewFlow creates an idle flow dispatching through d.
func NewFlow(d *Dispatcher) *Flow {
	return &Flow{d: d}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Widget returns the widget of the current attempt.
func (f *Flow) Widget() widget.Widget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.widget
}

// Resolution returns the parameter form of the current attempt.
func (f *Flow) Resolution() params.Resolution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolution
}

// Begin starts an attempt for w. When the widget needs no input it is
// dispatched immediately and the flow ends in Dispatched; otherwise the flow
// waits in PromptOpen for Submit or Cancel and the returned resolution
// describes the form to show.
//
// A configuration that does not parse fails with E201 and a widget without
// source with E220; both return the flow to Idle without dispatching.
func (f *Flow) Begin(ctx context.Context, w widget.Widget, target, container string) (params.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateIdle {
		return params.Resolution{}, f.illegal("begin")
	}
	f.state = StateScanning
	f.widget, f.target, f.container = w, target, container

	res, err := params.Resolve(placeholder.Scan(w.Source), w.Configuration, w.Description)
	if err != nil {
		f.d.metrics.RecordInstantiation(metrics.OutcomeInvalid)
		f.d.logger.Warn("widget configuration does not parse", "widget", w.ID, "error", err)
		f.d.notifier.Error(MsgInvalidConfig)
		f.state = StateIdle
		return params.Resolution{}, err
	}
	if w.IsEmpty() {
		f.state = StateIdle
		f.d.metrics.RecordInstantiation(metrics.OutcomeEmpty)
		f.d.notifier.Warning(MsgEmptyWidget)
		return params.Resolution{}, errors.New("E220").WithDetail("widget " + w.ID + " has no source")
	}
	f.resolution = res

	if !res.ShouldPrompt {
		f.state = StateNoPromptNeeded
		return res, f.dispatch(ctx, nil)
	}
	f.state = StatePromptOpen
	return res, nil
}

// Submit dispatches the attempt with the values entered into the form.
// Values for keys without a field are dropped; missing values take the
// field default.
func (f *Flow) Submit(ctx context.Context, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StatePromptOpen {
		return f.illegal("submit")
	}
	f.state = StateSubmitted
	return f.dispatch(ctx, f.resolution.Collect(values))
}

// Cancel abandons the attempt without dispatching.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StatePromptOpen {
		return f.illegal("cancel")
	}
	f.state = StateCancelled
	f.d.metrics.RecordInstantiation(metrics.OutcomeCancelled)
	f.reset()
	return nil
}

// Reset returns the flow to Idle so a new attempt can begin.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Flow) reset() {
	f.state = StateIdle
	f.widget = widget.Widget{}
	f.target, f.container = "", ""
	f.resolution = params.Resolution{}
}

func (f *Flow) dispatch(ctx context.Context, values map[string]string) error {
	if err := f.d.Instantiate(ctx, f.widget, values, f.target, f.container); err != nil {
		f.reset()
		return err
	}
	f.state = StateDispatched
	return nil
}

func (f *Flow) illegal(action string) error {
	return errors.New("E221").WithDetail(fmt.Sprintf("cannot %s while %s", action, f.state))
}
