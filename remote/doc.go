// Package remote defines the client abstraction over the external
// asynchronous batch API and its implementations.
//
// The JobClient interface covers the five operations the pipeline needs:
// file submission, file polling, job creation, job polling, and file content
// download. The openai subpackage implements it against the OpenAI Files and
// Batches endpoints; the mock subpackage provides a stateful test double.
package remote
