// Package resolve rewrites the relative resource references of a content
// document into local handles.
//
// A Resolver walks the document for image and stylesheet references,
// fetches each canonical path once per document, reverses font obfuscation
// where the registry declares it, expands stylesheet url() and @import
// references transitively, and rewrites the references once every fetch has
// settled.
//
// Per-document state lives in a Context (DedupCache, ProcessedSet and the
// handle scope). Completion is tracked by a JoinBarrier whose continuation
// applies the rewrites on a single goroutine; fetches and nested stylesheet
// expansions run on their own goroutines, so deep import chains never grow
// the call stack.
package resolve
