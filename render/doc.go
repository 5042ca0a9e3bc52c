// Package render serializes a device sequence for humans (Text) or for
// other programs (JSON).
//
// Both sinks consume only a train.Sequence and the platform.Platform it was
// fitted on; they never see the request or the fit. New device formats plug
// in by implementing Sink.
package render
