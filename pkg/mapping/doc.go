// Package mapping implements the declarative field-mapping engine that drives
// SARIF to Wiz conversion. A mapping configuration describes, per output
// field, where the value comes from (a constant or a path into the SARIF
// result), an optional named transformation, and an optional default.
//
// The package is built around three pieces:
//
//   - a path expression evaluator (Extract) that resolves dotted paths with
//     array indices against decoded JSON documents,
//   - a transformation registry with a small set of named, pure value
//     transforms,
//   - the Engine, which applies configured rules to a source record and
//     assembles nested output structures.
//
// Extraction and transformation are total: a path that does not resolve
// yields nil, an unknown transform name passes the value through unchanged.
// Mapping configurations routinely reference fields that a given scanner
// never emits, and that must stay a normal, cheap outcome.
package mapping
