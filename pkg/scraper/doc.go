// Package scraper wires a run together: one HTTP session shared by the
// renderer, the resolver and the download manager.
//
// Run resolves the query, downloads whatever was found and reports a
// Summary. Run-level outcomes are typed so the CLI can map them to exit
// codes:
//
//   - nil: at least one image was saved
//   - errors.ErrorTypeEmptyResult: no candidate URL was found, either because
//     upstream had nothing or because it could not be reached
//   - errors.ErrorTypeNoDownloads: candidates were found but none was saved
//   - errors.ErrorTypeStorage: the output directory could not be created
//
// Usage:
//
//	s := scraper.New(cfg, log)
//	summary, err := s.Run(ctx, "red cats")
package scraper
