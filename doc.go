/*
Package tagml imports TAGML documents into a validated, multi-layer graph of markup and text.

TAGML extends ordinary tag-based markup with four features: independently nesting
layers, discontinuous markup (suspend and resume), non-linear text variation
(alternative branches of text) and optional or milestone markup.

# Concept

Source text is tokenized into structural events. The import state machine consumes
those events one by one, keeps per-layer stacks of open and suspended markup, and
writes markup, layers and text nodes into a document model. Every well-formedness
violation becomes a diagnostic tagged with its line and column.

# Usage

	eng, err := tagml.New("")
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Import(ctx, "poem", []byte("[poem>[l>Roses are red<l]<poem]"))
	if err != nil {
		// err is a *domain.ImportError; res.Diagnostics holds the same entries
		log.Fatal(err)
	}
	fmt.Println(res.Document.Text())

Sources can also be read from a Loam repository of Markdown files, whose body is
TAGML text and whose frontmatter carries metadata:

	eng, err := tagml.New("./corpus")
	res, err := eng.ImportSource(ctx, "hamlet")
*/
package tagml
