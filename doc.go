/*
Package pitchpilot turns a natural-language requirement into a set of generated
artifacts and plays them back, chunk by chunk, into a single live preview.

A session submits the requirement to a generation backend, receives a bundle of
named text artifacts and reveals them in a deterministic order: the entry point
(index.html) first, every other artifact in lexicographic order. While the
reveal runs, the user may jump back to any artifact that already started; the
sequencer never stalls. Once every artifact has been revealed the bundle can be
deployed, yielding a public URL.

# Concept

Each Session is owned by a single goroutine. Public methods send commands to it
and return once the command was applied, so a Session can be shared between a
TUI, an HTTP handler and an MCP tool without extra locking. Remote calls run in
the background; use Wait to block until the session settles.

The engine never talks to the network directly. Hosts inject a ports.Generator
and a ports.Deployer (see pkg/adapters/backend for the HTTP implementation) and
any number of ports.Viewport preview surfaces.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/pitchpilot"
		"github.com/aretw0/pitchpilot/pkg/adapters/backend"
	)

	func main() {
		client := backend.New("http://localhost:8000")

		eng, err := pitchpilot.New(client, client, pitchpilot.WithChunkSize(100))
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		s := eng.Open(ctx, "demo")
		defer s.Close()

		if err := s.RequestGeneration(ctx, "a landing page for a bakery"); err != nil {
			log.Fatal(err)
		}
		snap, err := s.Wait(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(snap.Registry)

		if err := s.RequestDeploy(ctx); err != nil {
			log.Fatal(err)
		}
		snap, _ = s.Wait(ctx)
		fmt.Println(snap.Deploy.URL)
	}
*/
package pitchpilot
