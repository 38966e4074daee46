package scene

import "context"

// Node is one presentable unit of state: a full scene or a dialog overlay.
//
// The orchestrator drives every node through None -> Processing -> (Sleep <-> Processing)
// -> Terminate. Hooks receive the transition's context and may suspend on it; a hook that
// returns an error aborts the transition that invoked it.
type Node interface {
	// Enter is called once, right after construction, with the transition argument.
	Enter(ctx context.Context, arg any) error
	// Sleep is called when the node is superseded but kept for back-navigation.
	Sleep(ctx context.Context) error
	// Resume is called when a sleeping node becomes active again.
	Resume(ctx context.Context) error
	// Exit is called once when the node is terminated. Owned resources are released here.
	Exit(ctx context.Context) error
}

// DialogNode is implemented by dialogs that want access to their result slot.
// Bind is called after construction and before Enter.
type DialogNode interface {
	Node
	Bind(result *Result)
}

// Base provides no-op hooks. Embed it and override what the scene needs.
type Base struct{}

func (Base) Enter(context.Context, any) error { return nil }
func (Base) Sleep(context.Context) error      { return nil }
func (Base) Resume(context.Context) error     { return nil }
func (Base) Exit(context.Context) error       { return nil }

// DialogBase is Base plus a bound result slot.
type DialogBase struct {
	Base
	result *Result
}

// Bind stores the result slot.
func (d *DialogBase) Bind(result *Result) { d.result = result }

// Result returns the bound result slot, or nil before Bind.
func (d *DialogBase) Result() *Result { return d.result }

// Close completes the dialog with v.
func (d *DialogBase) Close(v any) error {
	if d.result == nil {
		return ErrUnbound
	}
	return d.result.Complete(v)
}

// Funcs builds a Node out of optional callbacks.
type Funcs struct {
	OnEnter  func(ctx context.Context, arg any) error
	OnSleep  func(ctx context.Context) error
	OnResume func(ctx context.Context) error
	OnExit   func(ctx context.Context) error
}

func (f *Funcs) Enter(ctx context.Context, arg any) error {
	if f.OnEnter == nil {
		return nil
	}
	return f.OnEnter(ctx, arg)
}

func (f *Funcs) Sleep(ctx context.Context) error {
	if f.OnSleep == nil {
		return nil
	}
	return f.OnSleep(ctx)
}

func (f *Funcs) Resume(ctx context.Context) error {
	if f.OnResume == nil {
		return nil
	}
	return f.OnResume(ctx)
}

func (f *Funcs) Exit(ctx context.Context) error {
	if f.OnExit == nil {
		return nil
	}
	return f.OnExit(ctx)
}
