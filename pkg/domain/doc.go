/*
Package domain contains the core domain models of the quiz funnel.

It defines the step catalog, the per-visitor session state and the answer values the
sequencer accumulates. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Step: One screen of the quiz (landing, select, input, results, pricing...).
  - Catalog: The immutable ordered list of steps. An index into it is the only notion of "where" a visitor is.
  - Answer: A tagged union (text, list or field map) resolved from the owning step's kind.
  - SessionState: The runtime snapshot of a visitor (position, answers, unit system, remote id).
  - Plan: An entry of the static pricing table handed to the checkout collaborator.
*/
package domain
