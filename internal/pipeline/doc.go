// Package pipeline orchestrates one remux run: it builds the graph skeleton,
// links demuxed streams into the muxer as they appear, embeds the comment
// tag, and drives the graph to end-of-stream or failure.
//
// Flow:
//
//	naming.OutputPath → graph.Build → Linker.Attach → EmbedTag →
//	Endpoints.Bind → RunLoop.Run
//
// The demux node exposes its pads from engine threads, so [Linker] is the
// only part of the package that runs concurrently with the control flow.
package pipeline
