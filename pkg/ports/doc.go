/*
Package ports defines the driven ports (interfaces) of the funnel sequencer.

These interfaces decouple the state machine from storage and network, allowing the
same sequencer to run in a terminal, behind an HTTP server or inside tests.

# Key Interfaces

  - LocalStore: durable key/value storage for one device's in-progress quiz.
  - DeviceStore: opens LocalStores by device namespace and enumerates them.
  - SessionStore: the remote session mirror (create with UTM, partial update).
  - SyncPort: fire-and-forget wrapper over a SessionStore used by the sequencer.
  - Checkout: turns a plan choice into a hosted-checkout redirect URL.
  - DistributedLocker: serializes a device's sessions across server replicas.
*/
package ports
