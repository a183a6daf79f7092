// activation-service/internal/infrastructure/jsonbin_store.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"codepay/internal/pkg/httpclient"
	"codepay/internal/service/activation/domain"
)

// JSONBinStore 是 SnapshotStore 的 JSONBin.io 实现，沿用最初部署的免费存储。
// JSONBin 只有整体读写，没有任何原子原语，所以激活路径必须配合
// 分布式锁（ZooKeeper）使用。
type JSONBinStore struct {
	client   *httpclient.Client
	endpoint string // 例如 https://api.jsonbin.io/v3
	binID    string
	apiKey   string
}

// NewJSONBinStore 创建 JSONBin 存储适配器。
func NewJSONBinStore(client *httpclient.Client, endpoint, binID, apiKey string) *JSONBinStore {
	return &JSONBinStore{
		client:   client,
		endpoint: endpoint,
		binID:    binID,
		apiKey:   apiKey,
	}
}

// GetSnapshot 读取最新版本。Bin 为空或字段缺失时返回空快照。
func (s *JSONBinStore) GetSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	url := fmt.Sprintf("%s/b/%s/latest", s.endpoint, s.binID)
	body, err := s.client.DoJSON(ctx, http.MethodGet, url, s.headers(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from jsonbin: %w", err)
	}

	// JSONBin 把文档包在 record 字段里
	var wrapper struct {
		Record domain.Snapshot `json:"record"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("unexpected jsonbin response: %w", err)
	}
	snapshot := wrapper.Record
	snapshot.EnsureMaps()
	return &snapshot, nil
}

func (s *JSONBinStore) PutSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	url := fmt.Sprintf("%s/b/%s", s.endpoint, s.binID)
	if _, err := s.client.DoJSON(ctx, http.MethodPut, url, s.headers(), data); err != nil {
		return fmt.Errorf("failed to write snapshot to jsonbin: %w", err)
	}
	return nil
}

func (s *JSONBinStore) headers() map[string]string {
	return map[string]string{"X-Master-Key": s.apiKey}
}
