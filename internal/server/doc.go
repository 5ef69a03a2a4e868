// Package server exposes the voice assistant over HTTP: the audio-message
// endpoint plus monitoring and conversation-management endpoints.
package server
