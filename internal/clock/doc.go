// Package clock provides the logical time type every other package
// uses (Tick), a Source interface for reporting the current tick, and
// Manual, an explicitly advanced Source. MFD and the coordinator take
// the current Tick as a call argument rather than reading a Source.
package clock
