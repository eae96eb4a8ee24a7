//go:build !replikit_debug

package opcrdt

func assertNever(msg string) {}
