// Package dialogue defines the shape of a multi-turn evaluation task and the
// structural checks applied to it.
//
// A Task is parsed from an untyped structured value (typically a decoded YAML
// or JSON document) with Parse. Every violation is reported as an Issue that
// names the offending field path and the violated Constraint; Parse collects
// all issues before returning a *ValidationError.
//
// Tasks and turns are immutable once constructed: accessors return copies.
package dialogue
