// Package filesystem provides the filesystem tyranno reads and rewrites target files through.
//
// FS is implemented over the OS and over any afero.Fs, so tests can run the
// sync engine against an in-memory tree. AtomicWriteFile and CopyFile build the
// commit step on top of FS: a rewritten file is first written to a hidden
// sibling and then renamed over the original.
package filesystem
