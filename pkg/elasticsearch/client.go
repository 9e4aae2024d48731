package elasticsearch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

type Client struct {
	es     *elasticsearch.Client
	logger *zap.Logger
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Indexes   map[string]map[string]interface{} // indexName -> mapping
}

// BulkOperation 批量操作的结构
type BulkOperation struct {
	Action   string                 `json:"action"`   // index, create, delete
	Index    string                 `json:"index"`    // 索引名
	ID       string                 `json:"id"`       // 文档ID
	Document map[string]interface{} `json:"document"` // 文档内容
}

// BulkError bulk 请求成功但部分条目失败
type BulkError struct {
	Failed int
	Total  int
	Type   string // 第一条失败的类型和原因
	Reason string
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk: %d/%d items failed, first: %s: %s", e.Failed, e.Total, e.Type, e.Reason)
}

type bulkItem struct {
	Status int `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type bulkResp struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]bulkItem `json:"items"`
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	client := &Client{
		es:     es,
		logger: log,
	}

	// 初始化索引，失败只记录日志，写入时再暴露错误
	for indexName, mapping := range cfg.Indexes {
		if err := client.EnsureIndex(context.Background(), indexName, mapping); err != nil {
			log.Error("Failed to initialize ES index", zap.String("index", indexName), zap.Error(err))
		}
	}
	return client, nil
}

func encodeBulk(operations []BulkOperation) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	for _, op := range operations {
		meta, err := sonic.Marshal(map[string]interface{}{
			op.Action: map[string]string{"_index": op.Index, "_id": op.ID},
		})
		if err != nil {
			return nil, err
		}
		buf.Write(meta)
		buf.WriteByte('\n')

		if op.Action == "delete" || op.Document == nil {
			continue
		}
		doc, err := sonic.Marshal(op.Document)
		if err != nil {
			return nil, fmt.Errorf("encode document %s: %w", op.ID, err)
		}
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	return &buf, nil
}

// BulkWrite 批量写入，有条目失败时返回 *BulkError
func (c *Client) BulkWrite(ctx context.Context, operations []BulkOperation) error {
	if len(operations) == 0 {
		return nil
	}

	body, err := encodeBulk(operations)
	if err != nil {
		return err
	}

	res, err := esapi.BulkRequest{Body: body}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("bulk operation failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk operation error: %s", res.String())
	}

	var parsed bulkResp
	if err := sonic.ConfigDefault.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if parsed.Errors {
		bulkErr := &BulkError{Total: len(operations)}
		for _, item := range parsed.Items {
			for _, result := range item {
				if result.Error == nil {
					continue
				}
				if bulkErr.Failed == 0 {
					bulkErr.Type, bulkErr.Reason = result.Error.Type, result.Error.Reason
				}
				bulkErr.Failed++
			}
		}
		if bulkErr.Failed > 0 {
			return bulkErr
		}
	}

	c.logger.Debug("Bulk write operation completed", zap.Int("operations", len(operations)))
	return nil
}

// EnsureIndex 索引不存在时按 mapping 创建
func (c *Client) EnsureIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{indexName}}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("check index %s: %w", indexName, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	mappingJSON, err := sonic.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	res, err := esapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(mappingJSON),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	// 多个实例同时启动时可能已被创建
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	c.logger.Info("Index created", zap.String("index", indexName))
	return nil
}

// Search 普通搜索
func (c *Client) Search(ctx context.Context, indexName string, query map[string]interface{}) (*SearchResult, error) {
	queryJSON, err := sonic.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result SearchResult
	if err := sonic.ConfigDefault.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}
	return &result, nil
}

type SearchResult struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

type Hit struct {
	Index  string                 `json:"_index"`
	ID     string                 `json:"_id"`
	Source map[string]interface{} `json:"_source"`
}
