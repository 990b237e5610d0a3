// Package hierarchy models the organizational tree (Enterprise → Segment →
// Platform → Region → Division → Plant) and resolves which physical plants a
// user may act upon.
//
// The catalog is an externally supplied, read-only JSON document. Keys are
// path-prefixed strings such as "ITW>Automotive OEM>". User records carry
// loosely formatted hierarchy paths that rarely match catalog keys verbatim,
// so every comparison in this package goes through a single normalize+match
// utility (see match.go) and an alias table that maps legacy or abbreviated
// names onto canonical catalog paths.
//
// Plant resolution is scope-dependent. Enterprise users see every plant;
// segment and platform users see the subtree under matching keys; division
// users go through a tiered match with a three-stage fallback chain that
// trades precision for recall; plant users get a plain bidirectional
// substring match against leaf plant names.
package hierarchy
