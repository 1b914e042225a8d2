// Package multipart implements the core of a streaming
// multipart/form-data parser (per RFC 7578 / RFC 2046) for use inside
// HTTP server request pipelines.
//
// The library accepts a boundary and an upstream byte source and
// yields a lazy sequence of parts, each either a text field or a file
// upload. A rich policy layer — a selector describing which file
// fields to accept, per-field and global size/count limits, and a MIME
// allow-list — is evaluated as each part's headers are parsed, before
// its body is ever read. File part bodies are handed to a pluggable
// storage.Engine as a one-shot stream, so that arbitrarily large
// uploads never need to be buffered in full; the scanner itself never
// holds more than one upstream chunk plus a small delimiter-sized tail
// at any point.
//
// The five pieces are split the way the problem actually decomposes:
// internal/scanner owns the byte buffer and the part state machine;
// internal/headerparse decodes Content-Disposition and Content-Type;
// selector evaluates field admission; part exposes the one-shot body
// handle; storage is the pluggable sink. The multipart package itself
// is thin: Multipart is the iterator, Multer is the convenience
// orchestrator that drives a Multipart to completion against a
// storage.Engine and collects the result as a ProcessedMultipart.
//
// If you already have a boundary, use New. If you only have a
// Content-Type header value, use NewFromContentType, which extracts
// and validates the boundary for you. For the common case of parsing
// straight through to storage, skip the iterator and call
// Multer.ParseAndStore or Multer.ParseStream.
//
// Framework adapters that turn a specific HTTP server's request object
// into a (content-type, io.Reader) pair, and the concrete choice of
// storage backend for production use, are left to the caller; this
// package provides two reference storage engines (storage.Memory and
// storage.Disk) suitable for tests and simple deployments.
package multipart
