// Package events lets services request background work without depending on
// the packages that perform it. The upload flow emits a TaskRequestEvent of
// type TypeDocumentExtraction; the task package registers the handler that
// turns it into a queued extraction job.
package events
