/*
Package graft is a typed state-graph execution engine for building agent
loops and tool-driven automation workflows.

It runs a directed graph of computation nodes over a shared, schema-typed
state. Nodes never mutate the state directly: each execution returns
Commands carrying a partial update plus optional routing, the executor
reduces every update through the field's declared reduction rule
(replace, append, shallow-merge), and any input derived from the state,
such as a dynamically computed prompt, is recomputed from the post-merge
state before the next node runs. A tool that updates the state in one
step is therefore always visible to the prompt construction of the next.

# Concept

A Run executes one node at a time, strictly sequential between nodes, so
state races are impossible by construction. The one place concurrency
exists is inside the tool-dispatch node: independent tool calls may run
in parallel, and their results are aggregated at a barrier in request
order before a single all-or-nothing merge.

# Usage

	schema := domain.NewSchema()
	schema.AddField("messages", domain.MessagesField())
	schema.AddField("tool_calls", domain.FieldSpec{Reduce: domain.Replace})
	schema.AddField("user_info", domain.FieldSpec{Reduce: domain.MergeMap})

	reg := registry.New()
	reg.MustRegister(domain.Tool{Name: "lookup"}, lookupTool)

	graph, err := graft.New(schema).
		AddNode("agent", graft.ModelNode(model), graft.WithInput(buildPrompt)).
		AddToolNode("tools", reg).
		AddEdge("tools", "agent").
		SetEntry("agent").
		Compile()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := graft.NewEngine(graph)
	if err != nil {
		log.Fatal(err)
	}

	run, err := eng.Invoke(ctx, domain.State{
		"messages": []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	}, graft.WithRunConfig(domain.RunConfig{"user_id": "u-42"}))
*/
package graft
