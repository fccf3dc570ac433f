// Package chem provides chemical-state entities built on the gufe
// content-addressing core.
//
// A ChemicalSystem is a labeled collection of Components (solvents, small
// molecules) with optional box vectors. All types here are immutable after
// construction, implement the Tokenizable contract, and register themselves
// at package initialization so encoded systems decode without further
// setup.
package chem
