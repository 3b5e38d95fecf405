// Package orchestrator drives one question through the two-phase
// tool-calling protocol.
//
// Phase 1 sends the conversation together with the tool catalog and lets the
// model choose. Every tool-call directive it returns is resolved, validated
// and executed in order; failures are logged and skipped without aborting
// the batch. The assistant message is then echoed with the executed
// directives, followed by one tool message per directive, and phase 2 asks
// the model, without tools, for the final answer. When phase 1 returns no
// directives its content is the answer and phase 2 is not run.
//
//	o := orchestrator.New(client, tools.NewLookupRegistry(svc), tools.MustNewCatalog(),
//	    orchestrator.WithLogger(logger))
//	turn, err := o.Ask(ctx, "How many people were hospitalized in AK on 3/7/2021?")
package orchestrator
