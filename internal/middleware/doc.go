// Package middleware implements the two interception chains wrapped around
// every action a store executes.
//
// Fire-and-forget links see the action and decide whether it continues:
//
//	func(ctx context.Context, h Host[S], a action.Action[S], next Next[S]) error
//
// A link that returns without calling next drops the action. Result links
// additionally see the state the rest of the pipeline produced and may
// replace it:
//
//	func(ctx context.Context, h Host[S], a action.Action[S], next ResultNext[S]) (S, error)
//
// Execution order for one action:
//
//	global links -> local links -> global result links -> local result links -> transition
//
// Within each tier links run in registration order. Chains compose only;
// they do not retry and they do not swallow errors.
package middleware
