// Package upload implements the blueprint ingestion pipeline
//
// A request travels receiver → extractor → resolver → publisher: the
// archive is streamed to a scratch file, unpacked into a uniquely named
// staging directory, its entry document parsed, and the result published
// atomically into storage and the permanent blueprint directory
package upload
