package elasticsearch

// indexMapping is the fixed settings and mapping of the products index.
// Names are indexed as edge n-grams and queried with a plain lowercase
// analyzer, which gives prefix matching without a completion suggester.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "filter": {
        "autocomplete_filter": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20
        }
      },
      "analyzer": {
        "autocomplete": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "autocomplete_filter"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                  { "type": "keyword" },
      "name":                { "type": "text", "analyzer": "autocomplete", "search_analyzer": "autocomplete_search", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":         { "type": "text", "analyzer": "standard" },
      "price":               { "type": "float" },
      "discount_price":      { "type": "float" },
      "discount_percentage": { "type": "integer" },
      "images":              { "type": "keyword" },
      "category":            { "type": "keyword" },
      "sizes":               { "type": "keyword" },
      "colors":              { "type": "keyword" },
      "stock":               { "type": "integer" },
      "rating":              { "type": "float" },
      "num_reviews":         { "type": "integer" },
      "dress_style":         { "type": "keyword" },
      "created_at":          { "type": "date" },
      "updated_at":          { "type": "date" }
    }
  }
}`

// IndexMapping returns the JSON body used to create the index.
func IndexMapping() string {
	return indexMapping
}
