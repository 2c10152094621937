/*
Package domain contains the core domain models for the Graft engine.

It defines the fundamental entities of the state-graph executor: the typed
State with its per-field reduction Schema, the Command protocol that nodes
use to propose partial updates and routing, the tool-call vocabulary, and
the error taxonomy. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - State: The shared mapping of named fields owned by a single Run.
  - Schema: Declares, per field, how proposed updates reduce into State.
  - Command: A partial state update plus optional routing directives.
  - ToolCall / Message: The tool-dispatch and conversation vocabulary.
  - StepEvent: The post-merge contribution of one executed node.
*/
package domain
