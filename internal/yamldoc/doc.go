// Package yamldoc is the structured document model used by every
// reconciliation stage.
//
// A Document wraps a gopkg.in/yaml.v3 node tree whose root is a mapping.
// Nodes keep their head comments, and mapping keys additionally carry a
// "blank line before" flag, so a parse, mutate, encode round trip keeps the
// layout a user gave the file.
//
// # Ordering
//
// Mapping order encodes execution precedence. The jobs mapping of a
// pipeline is read top to bottom by the gate synthesizer: a job that
// appears before the gate is one of its prerequisites. Helpers in this
// package therefore never reorder entries; replacements keep the original
// position and new keys are appended or inserted at an explicit anchor.
//
// # Encoding
//
// Documents encode with a two space indent, no line wrapping and plain
// scalars wherever YAML allows them, so encoding the same tree twice yields
// identical bytes.
package yamldoc
