// Package rtevent encodes control events (parameter changes, program
// changes, MIDI and transport updates) into a ringbuf engine, one commit
// group per event, so a reader never sees half an event.
//
// Unlike the ring itself, the event stream is tagged: every group starts
// with a one-byte Kind that tells the reader which fields follow.
package rtevent
