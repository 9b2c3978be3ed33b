/*
Package domain contains the core domain models for the PitchPilot playback engine.

It defines the artifact bundle produced by a generation request, the deterministic
reveal order, and the state machines that describe playback and deployment. This
package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Bundle: The named-artifact result of one generation request.
  - Playback: Idle, Generating, Revealing(artifact, revealed) or Complete.
  - Deploy: NotReady, Ready, Deploying, Deployed(url) or Failed(message).
  - Snapshot: The serializable view of one session (registry, active content, owner).
  - StateDiff: The changed fields between two snapshots, streamed to clients.
*/
package domain
