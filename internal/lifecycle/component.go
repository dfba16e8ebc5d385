// Package lifecycle starts long-running components in dependency order and
// stops them in reverse order.
package lifecycle

import "context"

// Component is something the manager starts and stops.
type Component interface {
	// Start must return once the component is ready. Long-running work
	// belongs in a goroutine owned by the component.
	Start(ctx context.Context) error

	// Stop should finish in-flight work before the context deadline.
	Stop(ctx context.Context) error

	// Name is used in logs and errors. Must be non-empty.
	Name() string
}

// Func adapts a pair of functions to Component. Either function may be nil.
type Func struct {
	ComponentName string
	StartFunc     func(ctx context.Context) error
	StopFunc      func(ctx context.Context) error
}

// Start calls StartFunc.
func (f *Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

// Stop calls StopFunc.
func (f *Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

// Name returns ComponentName.
func (f *Func) Name() string {
	return f.ComponentName
}
