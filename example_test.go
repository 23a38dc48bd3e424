package tagml_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/domain"
)

// ExampleEngine_Import imports overlapping markup kept apart by layers.
func ExampleEngine_Import() {
	eng, err := tagml.New("")
	if err != nil {
		log.Fatal(err)
	}

	src := "[text|+L,+S>[l|L>Roses are [s|S>red<l], [l|L>violets<s] are blue<l]<text]"
	res, err := eng.Import(context.Background(), "poem", []byte(src))
	if err != nil {
		log.Fatal(err)
	}

	doc := res.Document
	for _, m := range doc.MarkupsByTag("l") {
		fmt.Println(m.ExtendedTag(), doc.TextsOf(m.ID))
	}
	// Output:
	// l|L [Roses are  red]
	// l|L [violets  are blue]
}

// ExampleEngine_Import_diagnostics shows how well-formedness errors are reported.
func ExampleEngine_Import_diagnostics() {
	eng, err := tagml.New("")
	if err != nil {
		log.Fatal(err)
	}

	_, err = eng.Import(context.Background(), "broken", []byte("[a>[b>text<a]<b]"))

	var ie *domain.ImportError
	if errors.As(err, &ie) {
		for _, msg := range ie.Diagnostics.Messages() {
			fmt.Println(msg)
		}
	}
	// Output:
	// line 1:11 : Close tag <a] found, expected <b]. Use separate layers to allow for overlap.
}

// ExampleNew_memory imports sources from an in-memory loader.
func ExampleNew_memory() {
	loader := memory.NewLoader(map[string]string{
		"greeting": "[greeting>Hello, [name>World<name]!<greeting]",
	})

	eng, err := tagml.New("", tagml.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.ImportSource(context.Background(), "greeting")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Document.Text())
	// Output:
	// Hello, World!
}
