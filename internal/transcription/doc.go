// Package transcription converts audio files to text via OpenAI's Whisper
// speech-to-text API.
package transcription
