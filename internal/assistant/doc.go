// Package assistant sequences the voice pipeline: persist uploaded audio,
// transcode, transcribe, generate a reply, synthesize speech, and persist
// the result.
package assistant
