package rest

import (
	"context"
	"fmt"
	"strings"
)

// HandlerFunc is the signature of a versioned endpoint handler. The handler
// performs its own parameter validation and domain authorization via the
// Request, and reports domain failures either as a *ClientError carrying a
// pre-built Response or as any other error, which the dispatcher converts to
// a generic internal error.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// route is one registered path pattern with its per-verb handlers.
type route struct {
	pattern  string
	segments []string
	handlers map[string]HandlerFunc
}

// Registry maps (version, pattern, verb) triples to handler functions. It is
// built once at startup and treated as read-only at request time, so no
// locking is needed on the request path.
type Registry struct {
	versions map[string][]*route
}

// NewRegistry creates a Registry accepting the given API versions. Paths
// under any other version fail with ErrUnsupportedVersion.
func NewRegistry(versions ...string) *Registry {
	reg := &Registry{versions: make(map[string][]*route, len(versions))}
	for _, v := range versions {
		reg.versions[v] = nil
	}
	return reg
}

// Handle registers a handler for the given version, verb and path pattern.
// Patterns consist of slash-separated segments where "{name}" segments match
// any non-empty value.
//
// Registration fails with ErrAmbiguousRoute when the pattern overlaps an
// existing pattern without a deterministic winner, or when a handler is
// already registered for the same (pattern, verb) pair. Registration errors
// are startup-time failures; the registry never mutates after startup.
func (reg *Registry) Handle(version, verb, pattern string, h HandlerFunc) error {
	routes, ok := reg.versions[version]
	if !ok {
		return fmt.Errorf("register %s %s: %w: %q", verb, pattern, ErrUnsupportedVersion, version)
	}

	segments, err := splitPattern(pattern)
	if err != nil {
		return fmt.Errorf("register %s %s: %w", verb, pattern, err)
	}

	// Same pattern registered before: attach the verb to the existing route.
	for _, rt := range routes {
		if samePattern(rt.segments, segments) {
			if _, dup := rt.handlers[verb]; dup {
				return fmt.Errorf("register %s %s: %w: verb already registered", verb, pattern, ErrAmbiguousRoute)
			}
			rt.handlers[verb] = h
			return nil
		}
	}

	// A new pattern must not overlap an existing one unless the
	// longest-static-prefix rule picks a deterministic winner.
	for _, rt := range routes {
		if overlaps(rt.segments, segments) && staticPrefixLen(rt.segments) == staticPrefixLen(segments) {
			return fmt.Errorf("register %s %s: %w: overlaps %q", verb, pattern, ErrAmbiguousRoute, rt.pattern)
		}
	}

	reg.versions[version] = append(routes, &route{
		pattern:  strings.Trim(pattern, "/"),
		segments: segments,
		handlers: map[string]HandlerFunc{verb: h},
	})
	return nil
}

// Match resolves a (version, path) pair to its registered route and the
// extracted placeholder values. An exact all-static match wins over
// placeholder matches; among placeholder matches the longest static prefix
// wins, which registration guarantees is unique.
func (reg *Registry) Match(version, path string) (*route, Params, error) {
	routes, ok := reg.versions[version]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")

	var best *route
	bestPrefix := -1
	for _, rt := range routes {
		if !matchSegments(rt.segments, parts) {
			continue
		}
		if prefix := staticPrefixLen(rt.segments); prefix > bestPrefix {
			best, bestPrefix = rt, prefix
		}
	}
	if best == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrRouteNotFound, path)
	}

	params := Params{}
	for i, seg := range best.segments {
		if name, ok := placeholderName(seg); ok {
			params[name] = parts[i]
		}
	}
	return best, params, nil
}

// handler returns the handler registered for the verb on this route.
func (rt *route) handler(verb string) (HandlerFunc, bool) {
	h, ok := rt.handlers[verb]
	return h, ok
}

// splitPattern splits and validates a path pattern into its segments.
func splitPattern(pattern string) ([]string, error) {
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("pattern contains an empty segment")
		}
		if name, ok := placeholderName(seg); ok && name == "" {
			return nil, fmt.Errorf("pattern contains an unnamed placeholder")
		}
	}
	return segments, nil
}

// placeholderName extracts the name from a "{name}" segment.
func placeholderName(segment string) (string, bool) {
	if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}

// matchSegments reports whether the path parts satisfy the pattern: equal
// segment counts, literal equality on static segments, and any non-empty
// value on placeholder segments.
func matchSegments(pattern, parts []string) bool {
	if len(pattern) != len(parts) {
		return false
	}
	for i, seg := range pattern {
		if _, ok := placeholderName(seg); ok {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg != parts[i] {
			return false
		}
	}
	return true
}

// samePattern reports whether two patterns are structurally identical,
// treating all placeholders as equal regardless of name.
func samePattern(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		_, ap := placeholderName(a[i])
		_, bp := placeholderName(b[i])
		if ap != bp {
			return false
		}
		if !ap && a[i] != b[i] {
			return false
		}
	}
	return true
}

// overlaps reports whether some path could match both patterns.
func overlaps(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		_, ap := placeholderName(a[i])
		_, bp := placeholderName(b[i])
		if !ap && !bp && a[i] != b[i] {
			return false
		}
	}
	return true
}

// staticPrefixLen counts the leading static segments of a pattern.
func staticPrefixLen(segments []string) int {
	for i, seg := range segments {
		if _, ok := placeholderName(seg); ok {
			return i
		}
	}
	return len(segments)
}
