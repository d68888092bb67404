// Package flow is a small demand-driven stream library: publishers emit only as many items as
// their subscribers have requested, and stages between them can slow delivery down without ever
// buffering more than one item.
//
// The pieces compose into a single linear pipeline:
//
//	d := flow.Subscribe(ctx, flow.Delay(flow.Counter(), time.Second), onNext, onError, onComplete)
//	err := d.Wait(ctx)
package flow
