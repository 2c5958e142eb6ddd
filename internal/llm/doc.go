// Package llm provides the language model clients behind promotion search and
// voice answers. It speaks the OpenAI-compatible chat, transcription and speech
// wire formats, which lets the same client serve both the Cerebras relevance
// provider and OpenAI. The RelevanceOracle turns a query plus an ordered
// promotion list into validated positions; the Summarizer composes short spoken
// answers over the matched deals.
package llm
