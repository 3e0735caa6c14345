// Package catalog resolves list titles to TMDB identifiers and release years.
//
// Searches use the first result only; same-titled entries fall back on the API's
// relevance ranking. A miss (zero results or a non-success status) is reported as
// found=false with a nil error. Errors are reserved for transport and decode
// failures. Series are resolved to their TVDB id in two hops: search/tv for the
// TMDB id, then tv/{id}/external_ids.
package catalog
