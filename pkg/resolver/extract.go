package resolver

import (
	"github.com/tidwall/gjson"
)

const (
	pinsPath    = "initialReduxState.pins"
	resultsPath = "resource_response.data.results"
	imagePath   = "images.orig.url"
)

// collectImageURLs walks container (an object or an array) in document order
// and appends each member's images.orig.url while fewer than limit have been
// collected. Members without a non-empty string URL are skipped.
func collectImageURLs(container gjson.Result, limit int) []string {
	var urls []string
	if limit <= 0 || !container.IsObject() && !container.IsArray() {
		return urls
	}

	container.ForEach(func(_, member gjson.Result) bool {
		if !member.IsObject() {
			return true
		}
		u := member.Get(imagePath)
		if u.Type != gjson.String || u.Str == "" {
			return true
		}
		urls = append(urls, u.Str)
		return len(urls) < limit
	})
	return urls
}

// pinImageURLs extracts image URLs from a page state document
func pinImageURLs(doc string, limit int) []string {
	return collectImageURLs(gjson.Get(doc, pinsPath), limit)
}

// resultImageURLs extracts image URLs from a search resource response
func resultImageURLs(doc string, limit int) []string {
	return collectImageURLs(gjson.Get(doc, resultsPath), limit)
}
