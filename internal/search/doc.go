// Package search augments conversation turns with recent web results from
// the Google Custom Search API. Search is strictly best-effort: failures
// surface as absent results, never as errors.
package search
