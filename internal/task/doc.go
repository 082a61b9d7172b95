// Package task runs document text extraction in the background.
//
// Upload handlers enqueue a source id on the ExtractionQueue and return at
// once. A single ExtractionWorker consumes the queue in FIFO order and moves
// each document source through pending, processing and then completed or
// failed. Failures are contained per job so one bad file never stops the
// pipeline. ExtractionRunner owns the worker goroutine's lifecycle.
package task
