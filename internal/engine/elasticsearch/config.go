package elasticsearch

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
)

// DefaultIndexName is the index used when none is configured.
const DefaultIndexName = "products"

// Config describes how to reach the cluster. Either Addresses or CloudID
// must be set; credentials are optional.
type Config struct {
	Addresses []string
	CloudID   string
	Username  string
	Password  string
	APIKey    string
	Index     string

	// Transport replaces the default HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

func (c Config) indexName() string {
	if c.Index == "" {
		return DefaultIndexName
	}
	return c.Index
}

func (c Config) clientConfig() elasticsearch.Config {
	return elasticsearch.Config{
		Addresses: c.Addresses,
		CloudID:   c.CloudID,
		Username:  c.Username,
		Password:  c.Password,
		APIKey:    c.APIKey,
		Transport: c.Transport,
	}
}
