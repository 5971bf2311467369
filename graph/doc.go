// Package graph provides a small typed state graph used to run request flows
// as a sequence of named nodes.
//
// Nodes transform a state value of type S. Static edges and conditional edges
// decide which node runs next until the END node is reached.
//
//	g := graph.NewStateGraph[State]()
//	g.AddNode("route", "Pick a data source", routeFn)
//	g.AddNode("search", "Search the store", searchFn)
//	g.AddConditionalEdge("route", func(ctx context.Context, s State) string { return s.Next })
//	g.AddEdge("search", graph.END)
//	g.SetEntryPoint("route")
//
//	app, err := g.Compile()
//	final, err := app.Invoke(ctx, State{Query: "..."})
//
// Execution is sequential. Listeners attached with AddListener observe node
// start, completion and failure.
package graph
