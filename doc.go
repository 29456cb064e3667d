// Package blueprint is an extensible parser for a declarative
// component-definition language: documents describing objects
// ("components"), their wiring, and lifecycle are compiled into an
// in-memory metadata graph consumed by a dependency-injection runtime.
//
// # Architecture
//
// The module is built around an extension-resolution and
// metadata-decoration engine. Third-party namespace handlers register to
// interpret custom elements that appear either as top-level component
// declarations or as decorations attached to elements owned by the core
// grammar:
//
//	┌─────────────────────────────────────┐
//	│          Parse Engine               │  Dispatch, classification,
//	│  (parser.Parser, parser.Context)    │  class-space checks
//	└─────────────────────────────────────┘
//	           ↓ resolves handlers via
//	┌─────────────────────────────────────┐
//	│        Handler Registry             │  namespace URI → Handler
//	│       (namespace.Registry)          │  last-registered-wins
//	└─────────────────────────────────────┘
//	           ↓ handlers produce/mutate
//	┌─────────────────────────────────────┐
//	│         Metadata Graph              │  Arena-owned nodes keyed
//	│         (metadata.Graph)            │  by stable component id
//	└─────────────────────────────────────┘
//
// During parsing, when the engine encounters an element from a
// non-core namespace it resolves the owning handler and checks that the
// handler's managed classes are consistent with the class space of the
// module the document belongs to. For a stand-alone declaration the
// engine invokes Parse to create the element's metadata; for an element
// nested inside an existing component it invokes Decorate to augment
// the enclosing component. The parser context passed to both calls lets
// handlers recurse into sub-elements, mint fresh metadata and unique
// ids, and look up components declared earlier in the same document.
//
// # Decoration and replacement
//
// A Decorate call should prefer mutating the component it receives;
// when it returns a new instance instead, the engine rebinds the graph
// slot so all subsequent processing operates on the new instance, and
// carries interceptor bindings forward from the old one.
//
// # Sessions
//
// Parsing one document is a single-threaded, depth-first traversal with
// all mutable state confined to the session. Independent documents may
// be parsed concurrently, each in its own session, against the shared
// handler registry. On failure the session is discarded; no partial
// graph is ever exposed.
//
// # Packages
//
//   - document: element tree consumed by the engine, plus an XML loader
//   - metadata: metadata model, arena graph, session id generation
//   - namespace: handler contract, class spaces, handler registry
//   - interceptor: interceptor bindings and carry-forward
//   - parser: extension dispatcher and parse engine
//   - errors: parse-failure taxonomy
//   - config: engine configuration (decoration policy, limits)
//   - metric: Prometheus metric registration
//   - ext: builtin property-placeholder namespace handler
//   - handlerregistry: builtin handler registration
//   - cmd/blueprint: CLI for validating and exporting documents
package blueprint
