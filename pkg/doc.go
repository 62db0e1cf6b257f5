// Package pkg provides the core libraries for the posegate render harness.
//
// # Overview
//
// posegate drives a pinned external pose renderer from CI: it assembles
// the renderer's JSON config, invokes the binary, collects and verifies
// the artifacts it produces, derives view metrics from the pose
// timeline, and publishes the resulting video to Google Cloud Storage.
// The pkg directory is organized by concern:
//
//  1. [timeline], [atlas], [metrics] - Pose-domain logic (flat timelines,
//     view atlases, per-frame view derivation)
//  2. [config] - Renderer config assembly (base JSON + axis override +
//     transform profile)
//  3. [runner], [pipeline] - Renderer invocation and run orchestration
//  4. [cache], [verify], [gcs], [prbody] - Infrastructure (render cache,
//     output gates, uploads, PR body generation)
//
// # Architecture
//
// The typical data flow through a run:
//
//	base config + axis override + transform
//	         |
//	         v  (config.DeepMerge, config.Finalize)
//	final renderer config JSON
//	         |
//	         v  (runner.ExecRenderer, pipeline.Runner)
//	demo.mp4 + run.log.json + summary.csv [+ frames.csv]
//	         |
//	         v  (metrics.DeriveFrames, runner.UpdateRunLog)
//	out/videos + out/logs with metrics.view merged
//	         |
//	         v  (verify.Check, gcs.Upload)
//	public or V4-signed review URL
package pkg
