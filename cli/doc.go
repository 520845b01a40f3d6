// Package cli implements the mizan command line: a banner on the bare
// command, run and validate over task definition files, and version.
package cli
