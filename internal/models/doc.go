// Package models lists the TTS and chat models the configured API
// keys can use, plus the locally installed espeak-ng voices. It backs
// the --list-models flag.
package models
