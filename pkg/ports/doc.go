/*
Package ports defines the driven ports (interfaces) for the PitchPilot engine.

These interfaces decouple the playback core from external implementations, allowing
the engine to work with any generation backend, preview surface, or snapshot store.

# Key Interfaces

  - Generator: Performs the remote "generate" operation (requirement -> bundle).
  - Deployer: Performs the remote "deploy" operation (current bundle -> public URL).
  - Viewport: Receives every change of the active content (the live preview).
  - StateStore: Persists session snapshots while a session is open.
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
