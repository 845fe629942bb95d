// Package artifact defines the normalized numeric bundle every instrument
// file is converted into, the extension-to-category registry, and the
// producers that perform the conversion.
//
// A producer returning an error is the only failure signal the pipeline
// understands: the raw file is dropped and never retried.
package artifact
