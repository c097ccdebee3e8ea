// Package registry holds named items, most notably the post-process hooks
// and loaders that catalog specs refer to by name.
package registry
