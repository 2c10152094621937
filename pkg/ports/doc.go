/*
Package ports defines the interfaces between the Graft core and its
collaborators (stores, decision models), following Hexagonal Architecture
principles. Adapters live under pkg/adapters; the core depends only on
these contracts.
*/
package ports
