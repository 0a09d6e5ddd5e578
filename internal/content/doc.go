// Package content generates the text side of a flashcard using the
// Gemini API. For each Danish word it produces the word enriched with
// its article and plural form, an example sentence, and English
// translations of both, parsed from a strict JSON response.
package content
