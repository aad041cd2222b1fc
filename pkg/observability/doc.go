/*
Package observability turns sequencer lifecycle events into logs and Prometheus metrics.

Both are delivered as domain.LifecycleHooks, so they can be merged and handed to
funnel.WithLifecycleHooks.
*/
package observability
