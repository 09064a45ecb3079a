//go:build release

package vm

const debugBuild = false
