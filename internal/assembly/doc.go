// Package assembly renders the final music video: it plans the segment
// timeline, re-encodes segments to shared codec parameters, concatenates
// them, matches the video length to the audio track, and muxes both into the
// deliverable container.
package assembly
