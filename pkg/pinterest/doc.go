// Package pinterest knows the shape of the site's public surface: the search
// results page, the internal BaseSearchResource endpoint and the id of the
// script element that carries the page state.
package pinterest
