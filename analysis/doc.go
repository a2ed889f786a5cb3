// Package analysis provides stream.Analyzer implementations.
//
// PassThrough forwards raw documents. SentenceTokenizer turns the text field
// of every document into sentences of word tokens, the unit an embedding
// trainer consumes.
package analysis
