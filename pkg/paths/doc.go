// Package paths validates and resolves the relative paths that address
// dataset artifacts under a dataset root.
//
// Every artifact lives at datasetRoot/<relativePath>. A relative path must
// never be absolute and must never climb out of the root with "..".
package paths
