// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	vault "github.com/hashicorp/vault/api"

	pkgerrors "agentcourt/pkg/errors"
)

// VaultConfig Vault 配置；凭证存放于 KV v2 引擎，字段名 value
type VaultConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	// Mount KV v2 挂载点，默认 secret
	Mount string `mapstructure:"mount"`
	// Path 挂载点下的目录，如 agentcourt
	Path string `mapstructure:"path"`
}

const vaultValueField = "value"

type vaultStore struct {
	kv   *vault.KVv2
	list *vault.Logical
	cfg  VaultConfig
}

// NewVaultStore 创建 Vault Store 并做一次健康检查
func NewVaultStore(cfg VaultConfig) (Store, error) {
	if cfg.Address == "" {
		cfg.Address = "http://127.0.0.1:8200"
	}
	if cfg.Mount == "" {
		cfg.Mount = "secret"
	}
	vc := vault.DefaultConfig()
	vc.Address = cfg.Address
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create vault client", pkgerrors.V("address", cfg.Address))
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	if _, err := client.Sys().Health(); err != nil {
		return nil, pkgerrors.Wrap(err, "vault health check", pkgerrors.V("address", cfg.Address))
	}
	return &vaultStore{kv: client.KVv2(cfg.Mount), list: client.Logical(), cfg: cfg}, nil
}

func (v *vaultStore) secretPath(key string) string {
	return path.Join(v.cfg.Path, key)
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := v.kv.Get(ctx, v.secretPath(key))
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", notFound(key)
		}
		return "", pkgerrors.Wrap(err, "read vault secret", pkgerrors.V("key", key))
	}
	if secret == nil || secret.Data == nil {
		return "", notFound(key)
	}
	value, ok := secret.Data[vaultValueField].(string)
	if !ok {
		return "", pkgerrors.Wrap(pkgerrors.ErrNotFound, "vault secret has no value field", pkgerrors.V("key", key))
	}
	return value, nil
}

func (v *vaultStore) Set(ctx context.Context, key, value string) error {
	if _, err := v.kv.Put(ctx, v.secretPath(key), map[string]interface{}{vaultValueField: value}); err != nil {
		return pkgerrors.Wrap(err, "write vault secret", pkgerrors.V("key", key))
	}
	return nil
}

func (v *vaultStore) Delete(ctx context.Context, key string) error {
	if err := v.kv.DeleteMetadata(ctx, v.secretPath(key)); err != nil {
		return pkgerrors.Wrap(err, "delete vault secret", pkgerrors.V("key", key))
	}
	return nil
}

// List 只列出 prefix 所在目录的直接子项
func (v *vaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	dir, leaf := path.Split(prefix)
	metaPath := path.Join(v.cfg.Mount, "metadata", v.cfg.Path, dir)
	secret, err := v.list.ListWithContext(ctx, metaPath)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list vault secrets", pkgerrors.V("prefix", prefix))
	}
	if secret == nil {
		return nil, nil
	}
	keys, _ := secret.Data["keys"].([]interface{})
	var out []string
	for _, k := range keys {
		name, ok := k.(string)
		if !ok || strings.HasSuffix(name, "/") || !strings.HasPrefix(name, leaf) {
			continue
		}
		out = append(out, dir+name)
	}
	sort.Strings(out)
	return out, nil
}
