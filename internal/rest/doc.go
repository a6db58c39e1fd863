// Package rest implements the generic request-processing pipeline shared by
// every API endpoint: route matching, parameter validation, and the
// dispatch of inbound messages to versioned endpoint handlers.
//
// The pipeline turns an arbitrary inbound call into a validated,
// authenticated Request, invokes the registered handler for the matched
// (version, pattern, verb) triple, and converts any outcome - success,
// domain error, authorization failure, or panic - into exactly one
// uniform Response envelope.
package rest
