// Package system implements the lifecycle orchestrator at the core of
// sensord: a registry of managed modules started in priority order, rolled
// back on partial failure, and shut down exactly once, in reverse, no
// matter how many triggers fire.
package system
