package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/scenestack/pkg/masterdata"
	backend "github.com/redis/go-redis/v9"
)

// MasterDataSource reads master-data tables from Redis.
//
// Each table has a set at prefix+table listing its row ids, and each row is a hash at
// prefix+table+":"+id. Hash values are strings; typed decoding is left to masterdata.Build.
type MasterDataSource struct {
	client *backend.Client
	prefix string
}

// NewMasterDataSource creates a source under prefix. An empty prefix uses
// DefaultPrefix+"masterdata:".
func NewMasterDataSource(client *backend.Client, prefix string) *MasterDataSource {
	if prefix == "" {
		prefix = DefaultPrefix + "masterdata:"
	}
	return &MasterDataSource{client: client, prefix: prefix}
}

func (m *MasterDataSource) tableKey(table string) string {
	return m.prefix + table
}

func (m *MasterDataSource) rowKey(table, id string) string {
	return m.prefix + table + ":" + id
}

// Fetch reads the given tables into a raw snapshot. Rows are ordered by id.
func (m *MasterDataSource) Fetch(ctx context.Context, tables ...string) (masterdata.Snapshot, error) {
	snap := make(masterdata.Snapshot, len(tables))
	for _, table := range tables {
		ids, err := m.client.SMembers(ctx, m.tableKey(table)).Result()
		if err != nil {
			return nil, fmt.Errorf("read table %s: %w", table, err)
		}
		sort.Strings(ids)

		cmds := make([]*backend.MapStringStringCmd, len(ids))
		_, err = m.client.Pipelined(ctx, func(pipe backend.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = pipe.HGetAll(ctx, m.rowKey(table, id))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read rows of %s: %w", table, err)
		}

		rows := make([]map[string]any, 0, len(ids))
		for i, cmd := range cmds {
			fields := cmd.Val()
			if len(fields) == 0 {
				return nil, fmt.Errorf("table %s: row %s has no fields", table, ids[i])
			}
			row := make(map[string]any, len(fields))
			for k, v := range fields {
				row[k] = v
			}
			rows = append(rows, row)
		}
		snap[table] = rows
	}
	return snap, nil
}

// Load fetches the stage and enemy tables and builds the indexed database.
func (m *MasterDataSource) Load(ctx context.Context) (*masterdata.Database, error) {
	snap, err := m.Fetch(ctx, masterdata.TableStages, masterdata.TableEnemies)
	if err != nil {
		return nil, err
	}
	return masterdata.Build(snap)
}

// Seed writes a raw snapshot, replacing the listed tables. Every row needs an "id" field.
func (m *MasterDataSource) Seed(ctx context.Context, snap masterdata.Snapshot) error {
	_, err := m.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		for table, rows := range snap {
			pipe.Del(ctx, m.tableKey(table))
			for i, row := range rows {
				rawID, ok := row["id"]
				if !ok {
					return fmt.Errorf("table %s: row %d has no id", table, i)
				}
				id := fmt.Sprint(rawID)
				values := make(map[string]any, len(row))
				for k, v := range row {
					values[k] = fmt.Sprint(v)
				}
				pipe.Del(ctx, m.rowKey(table, id))
				pipe.HSet(ctx, m.rowKey(table, id), values)
				pipe.SAdd(ctx, m.tableKey(table), id)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed master data: %w", err)
	}
	return nil
}
