package bleve

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

// Analyzer and field names private to this index.
const (
	autocompleteFilter   = "autocomplete_filter"
	autocompleteAnalyzer = "autocomplete"
	autocompleteSearch   = "autocomplete_search"

	// sourceField holds the whole document as JSON so hits can be returned
	// without reassembling stored fields.
	sourceField = "source"
)

// buildIndexMapping mirrors the Elasticsearch mapping: names are indexed as
// lowercase edge n-grams of 2 to 20 characters and searched with a plain
// lowercase analyzer.
func buildIndexMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomTokenFilter(autocompleteFilter, map[string]interface{}{
		"type": edgengram.Name,
		"back": false,
		"min":  2.0,
		"max":  20.0,
	}); err != nil {
		return nil, err
	}
	if err := im.AddCustomAnalyzer(autocompleteAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, autocompleteFilter},
	}); err != nil {
		return nil, err
	}
	if err := im.AddCustomAnalyzer(autocompleteSearch, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}

	doc := bleve.NewDocumentStaticMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = autocompleteAnalyzer
	name.IncludeInAll = false
	doc.AddFieldMappingsAt(domain.FieldName, name)

	description := bleve.NewTextFieldMapping()
	description.Analyzer = standard.Name
	description.IncludeInAll = false
	doc.AddFieldMappingsAt(domain.FieldDescription, description)

	for _, f := range []string{domain.FieldID, domain.FieldCategory, domain.FieldColors, domain.FieldSizes, domain.FieldDressStyle} {
		kw := bleve.NewKeywordFieldMapping()
		kw.IncludeInAll = false
		doc.AddFieldMappingsAt(f, kw)
	}

	for _, f := range []string{domain.FieldPrice, domain.FieldRating, domain.FieldStock} {
		num := bleve.NewNumericFieldMapping()
		num.IncludeInAll = false
		num.Store = f == domain.FieldPrice
		doc.AddFieldMappingsAt(f, num)
	}

	created := bleve.NewDateTimeFieldMapping()
	created.IncludeInAll = false
	doc.AddFieldMappingsAt(domain.FieldCreatedAt, created)

	source := bleve.NewTextFieldMapping()
	source.Index = false
	source.Store = true
	source.IncludeInAll = false
	source.IncludeTermVectors = false
	source.DocValues = false
	doc.AddFieldMappingsAt(sourceField, source)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = keyword.Name
	return im, nil
}

// indexable flattens d into the field map stored by the index.
func indexable(d domain.Document, source []byte) map[string]interface{} {
	return map[string]interface{}{
		domain.FieldID:          d.ID,
		domain.FieldName:        d.Name,
		domain.FieldDescription: d.Description,
		domain.FieldCategory:    d.Category,
		domain.FieldColors:      d.Colors,
		domain.FieldSizes:       d.Sizes,
		domain.FieldDressStyle:  d.DressStyle,
		domain.FieldPrice:       d.Price,
		domain.FieldRating:      d.Rating,
		domain.FieldStock:       float64(d.Stock),
		domain.FieldCreatedAt:   d.CreatedAt,
		sourceField:             string(source),
	}
}
