// Package synthesis converts reply text to speech via AWS Polly.
package synthesis
