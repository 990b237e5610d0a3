// Package accesscontrol resolves a user's identity into an AccessControl
// object: who they are, where they sit in the organizational hierarchy, and
// which capabilities their role grants.
//
// Resolution is read-only and fail-closed. A missing or inactive user record
// is a normal "no access" result, not an error; a malformed record (missing
// level or hierarchy path) degrades to the most restrictive plant scope
// rather than failing the whole resolution. Only infrastructure failures
// (store unreachable, bad payloads) surface as errors.
//
// The package also carries the two pure gates consumed by the UI layer:
// FilterByHierarchy, which trims record collections to the caller's
// authorized subtree with a cheap prefix/equality test, and IsVisible, which
// decides menu entries from the permission set with a group-claim fallback.
package accesscontrol
