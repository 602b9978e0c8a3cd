// Package main hosts the beatforge CLI entrypoint and command graph.
//
// The Cobra-based command tree covers running the pipeline daemon in the
// foreground, inspecting asset and deliverable state, beat analysis, manual
// music-video assembly, and configuration scaffolding. It centralizes
// configuration resolution and store access so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
