// Package protocols provides transformation and execution-graph entities
// built on the gufe content-addressing core.
//
// A Protocol is configured once with Settings and prepares a ProtocolDAG
// for a Transformation between two chemical systems. The DAG is a directed
// acyclic graph of ProtocolUnits with explicit dependencies; executing it
// is out of scope here and belongs to an external scheduler. Every type
// implements the Tokenizable contract and registers itself at package
// initialization.
package protocols
