// Package transcript cleans earnings-call text and converts dataset rows
// into canonical records and records into documents ready for chunking.
package transcript
