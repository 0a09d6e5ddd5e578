// Package pipeline drives a flashcard run end to end.
//
// A run takes the loaded word list and moves each word through three
// stages: content generation, audio synthesis and delivery to Anki.
// Progress is checkpointed after every stage transition, so an
// interrupted run resumes where it stopped and a finished word is never
// paid for twice. Failures are per-word except for AnkiConnect
// connectivity, which aborts the run because nothing can be delivered
// without it.
package pipeline
