// Package loader imports a pre-extracted datastore dump into storage.
//
// The dump directory layout is what the ingestion collaborator produces:
// one JSON file per collection (documents.json, sections.json, objects.json,
// references.json, precedence.json, symbols.json), each a JSON object keyed
// by canonical id. Missing files are skipped so partial dumps load fine.
//
// Loading also embeds every imported section's title and content into the
// vector index, batched on a worker pool that can be shared with the query
// engine's LLM concurrency limiter.
//
//	l, err := loader.New(store, index, provider.Embedder())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Release()
//
//	stats, err := l.LoadDir(ctx, "./dump")
package loader
