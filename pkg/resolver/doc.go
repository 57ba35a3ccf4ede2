// Package resolver resolves a search query into candidate image URLs.
//
// Resolution runs two stages and stops at the first that yields anything:
//
//  1. Primary: the search results page is rendered and the JSON held by
//     script#__PWS_DATA__ is walked at initialReduxState.pins, taking each
//     pin's images.orig.url.
//  2. Fallback: BaseSearchResource is queried and
//     resource_response.data.results is walked the same way.
//
// Both walks preserve document order and stop at the limit. Entries without a
// usable URL are skipped. Stage failures never escape: each stage returns a
// StageOutcome whose Reason says why it produced nothing, and Resolve returns
// an empty list when both come back empty. A non-positive limit returns
// immediately without touching the network.
package resolver
