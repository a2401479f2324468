/*
    AUTHOR

	Grant Street Group <developers@grantstreet.com>

	COPYRIGHT AND LICENSE

	This software is Copyright (c) 2019 by Grant Street Group.
	This is free software, licensed under:
	    MIT License
*/

package exasol

import "io"

// newIOPipe is the one place etl_job.go connects a worker to its
// user-facing stream: an in-process io.Pipe is the idiomatic Go
// lazy-sequence handoff — the worker goroutine and the user goroutine
// rendezvous on every Read/Write, suspending the caller exactly when no
// progress is possible, without a bespoke channel-of-buffers protocol.
func newIOPipe() (*io.PipeReader, *io.PipeWriter) {
	return io.Pipe()
}

// WorkerWriter is the user's end of one IMPORT worker: writing to it
// queues bytes that the worker streams to the cluster as the chunked HTTP
// response body. Close must be called exactly once, after the last Write,
// to flush the chunked terminator; closing early fails the job with a
// server-side error, since the cluster sees a truncated response.
type WorkerWriter struct {
	pw *io.PipeWriter
}

func (w *WorkerWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }
func (w *WorkerWriter) Close() error                { return w.pw.Close() }

// WorkerReader is the user's end of one EXPORT worker: reading from it
// yields the cluster's exported bytes, gunzipped first if the job
// requested compression. EOF marks the end of that worker's single HTTP
// request body, the chunked upload the cluster sends.
type WorkerReader struct {
	pr *io.PipeReader
}

func (r *WorkerReader) Read(p []byte) (int, error) { return r.pr.Read(p) }
func (r *WorkerReader) Close() error               { return r.pr.Close() }
