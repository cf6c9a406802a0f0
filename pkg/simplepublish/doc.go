// Package simplepublish assembles profile and job submissions, validates
// their attachments, and publishes them as immutable, content-addressed
// manifests.
//
// A Publisher runs the pipeline for one submission: attachment and field
// validation first, then one batch upload per attachment role (concurrently),
// then a single manifest document that references every batch by content
// identifier. The manifest is only uploaded once every batch has succeeded,
// so a published manifest never points at content that failed to store.
//
// Storage providers implement the Uploader interface. A pinning-service
// client lives in the pinning subpackage; a self-hosted content-addressed
// store built on pluggable blob backends (memory, filesystem, S3) lives in
// the cas and storage subpackages.
//
// Drafts
//
// Work in progress is kept as a SubmissionDraft in an injected DraftStore.
// Stores have last-write-wins semantics: the most recent Set for a key
// replaces whatever was stored before, with no merge or conflict detection.
package simplepublish
