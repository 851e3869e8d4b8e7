// Package transcriber turns a downloaded video into a timestamped transcript.
//
// The audio stream is chosen with internal/media/audio, extracted to mono
// 16 kHz WAV with ffmpeg, and fed to WhisperX through uvx. WhisperX writes a
// JSON document next to the WAV which is parsed into media.Transcription.
// Work files live in a per-call temporary directory that is always removed.
package transcriber
