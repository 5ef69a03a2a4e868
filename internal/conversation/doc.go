// Package conversation owns per-session chat transcripts and generates
// assistant replies through a language-model completion engine, optionally
// augmented with live web-search context.
package conversation
