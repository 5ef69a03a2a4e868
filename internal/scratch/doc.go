// Package scratch manages uniquely-named temporary files used to pass
// audio between pipeline stages.
package scratch
