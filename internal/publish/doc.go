// Package publish uploads finished shorts and decides when they go live.
//
// A SlotStrategy assigns each upload in a batch a strictly increasing future
// publish time. Alternating (morning/evening) is the default; DailySingle is
// the documented alternate that schedules one upload per day.
//
// Uploader speaks the resumable upload protocol: an initiating POST returns a
// session URI, then fixed-size chunks are PUT with Content-Range until the
// server answers with the created video resource. Transient failures retry the
// same chunk after a fixed interval through an injected Sleeper, bounded by
// RetryPolicy.MaxAttempts and cancelled through the context.
package publish
