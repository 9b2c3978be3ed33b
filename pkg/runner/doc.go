/*
Package runner drives a playback session without an interactive frontend.

A run sanitizes the requirement, submits it, waits until every artifact has been
revealed, presents each artifact through an IOHandler and, when asked, deploys
the result. TextHandler prints artifacts (optionally rendered as markdown code
blocks), JSONHandler emits one JSON object per line for scripting.

# Usage

	r := runner.NewRunner(
		runner.WithHandler(runner.NewJSONHandler(os.Stdout)),
		runner.WithDeploy(true),
	)

	snap, err := r.Run(ctx, session, "a landing page for a bakery")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(snap.Deploy.URL)

SanitizeInput is shared with the HTTP and MCP hosts so every entry point applies
the same input policy.
*/
package runner
