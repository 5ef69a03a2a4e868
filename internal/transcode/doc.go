// Package transcode normalizes arbitrary uploaded audio into decodable MP3
// by invoking an external ffmpeg process.
package transcode
