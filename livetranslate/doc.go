// Package livetranslate turns keystrokes into streamed translations.
//
// A Debouncer waits for the typist to pause, a Coordinator runs one remote
// request at a time and discards results of superseded ones, and a Decoder
// splits each streamed reply into its language header and the growing
// translation text.
package livetranslate
