// Package apiv2 implements the v2 resource endpoints: per-resource CRUD
// handlers over the document store, registered against the shared request
// pipeline. Each handler is thin persistence glue: load a document, check
// ownership, read or write a few fields, and return the envelope.
package apiv2
