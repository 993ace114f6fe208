package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

type (
	// Index is the append-only event index behind the query pass-through
	// endpoints. Records are stored as raw JSON; queries filter on gjson
	// paths and the results are returned uninterpreted
	Index struct {
		client *redis.Client
		prefix string
	}

	// QueryRequest is the opaque query body accepted by the index
	QueryRequest struct {
		Query []QueryTerm `json:"query,omitempty"`
		Size  int         `json:"size,omitempty"`
	}

	// QueryTerm matches records whose value at Path equals Value
	QueryTerm struct {
		Path  string `json:"path"`
		Value string `json:"value"`
	}

	// QueryResponse carries matching records and the total match count
	QueryResponse struct {
		Hits  []json.RawMessage `json:"hits"`
		Total int               `json:"total"`
	}
)

const (
	// maxIndexLen caps each index list; older records roll off
	maxIndexLen = 100_000

	defaultQuerySize = 100
)

// NewIndex creates an event index using "{prefix}:index:{name}" lists
func NewIndex(client *redis.Client, prefix string) *Index {
	return &Index{
		client: client,
		prefix: prefix,
	}
}

func (i *Index) listKey(index string) string {
	return i.prefix + ":index:" + index
}

// Append adds a record to the named index
func (i *Index) Append(ctx context.Context, index string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := i.listKey(index)
	pipe := i.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxIndexLen, -1)
	_, err = pipe.Exec(ctx)
	return err
}

// Query runs an opaque query against the named index. A malformed body
// fails with BadParameters; everything else is pass-through
func (i *Index) Query(
	ctx context.Context, index string, body []byte,
) (*QueryResponse, error) {
	req, err := parseQuery(body)
	if err != nil {
		return nil, err
	}

	records, err := i.client.LRange(ctx, i.listKey(index), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	res := &QueryResponse{Hits: []json.RawMessage{}}
	for _, record := range records {
		if !matches(record, req.Query) {
			continue
		}
		res.Total++
		if len(res.Hits) < req.Size {
			res.Hits = append(res.Hits, json.RawMessage(record))
		}
	}
	return res, nil
}

func parseQuery(body []byte) (*QueryRequest, error) {
	req := &QueryRequest{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, req); err != nil {
			return nil, api.BadParameters("invalid query body: %v", err)
		}
	}
	if req.Size <= 0 {
		req.Size = defaultQuerySize
	}
	for _, term := range req.Query {
		if term.Path == "" {
			return nil, api.BadParameters("query term is missing a path")
		}
	}
	return req, nil
}

func matches(record string, terms []QueryTerm) bool {
	for _, term := range terms {
		if gjson.Get(record, term.Path).String() != term.Value {
			return false
		}
	}
	return true
}
