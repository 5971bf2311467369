// Package tool provides the external lookups the answer flow can route to.
//
// # Wikipedia
//
// Wikipedia wraps the langchaingo Wikipedia tool with the defaults the router
// expects: a single article, a 400 character summary and English pages.
//
//	wiki := tool.NewWikipedia(
//		tool.WithCache(cache.NewMemoryCache(time.Hour)),
//	)
//
//	summary, err := wiki.Search(ctx, "Who was Alan Turing?")
//
// A search that finds nothing returns NoResults rather than an error, so
// callers can show it directly. Wikipedia also satisfies the langchaingo
// tools.Tool interface and can be handed to an agent.
package tool
