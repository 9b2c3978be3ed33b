/*
Package session implements session management and snapshot persistence.

A Manager opens playback sessions on an engine, hands them out by ID to hosts
(HTTP, MCP, TUI) and mirrors every structural state change into a ports.StateStore
while the session is open. Writes are serialized per session by ref-counted local
mutexes and, across replicas, by an optional ports.DistributedLocker. Closing a
session deletes its snapshot: nothing outlives the session.
*/
package session
